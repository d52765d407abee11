package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ironbell/pressgang/internal/infrastructure/certificate"
	"github.com/ironbell/pressgang/internal/infrastructure/containers"
	"github.com/ironbell/pressgang/internal/infrastructure/proxy"
	"github.com/ironbell/pressgang/internal/readiness"
	"github.com/ironbell/pressgang/pkg/executor"
	"github.com/ironbell/pressgang/pkg/executor/dockercli"
	"github.com/ironbell/pressgang/pkg/secrets"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const credentialsFile = "credentials.json"

// StackService provides transport-agnostic stack operations.
type StackService struct {
	containerManager *containers.Manager
	certManager      *certificate.Manager
	proxyManager     *proxy.Manager
	docker           *dockercli.Client
	exec             executor.Executor
	poller           *readiness.Poller
	logger           *slog.Logger

	// Overridable in tests; defaults probe the stack's configured domain.
	verifyHTTPBase  string
	verifyHTTPSBase string

	upCounter   metric.Int64Counter
	downCounter metric.Int64Counter
	upDuration  metric.Float64Histogram
}

// NewStackService creates a new StackService.
func NewStackService(
	containerManager *containers.Manager,
	certManager *certificate.Manager,
	proxyManager *proxy.Manager,
	docker *dockercli.Client,
	exec executor.Executor,
	poller *readiness.Poller,
	logger *slog.Logger,
) *StackService {
	meter := otel.Meter("pressgang/service")

	upCounter, err := meter.Int64Counter(
		"pressgang.stack.up",
		metric.WithDescription("Number of stack up operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create upCounter metric", slog.String("error", err.Error()))
	}

	downCounter, err := meter.Int64Counter(
		"pressgang.stack.down",
		metric.WithDescription("Number of stack down operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create downCounter metric", slog.String("error", err.Error()))
	}

	upDuration, err := meter.Float64Histogram(
		"pressgang.stack.up.duration",
		metric.WithDescription("Duration of stack up operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create upDuration metric", slog.String("error", err.Error()))
	}

	return &StackService{
		containerManager: containerManager,
		certManager:      certManager,
		proxyManager:     proxyManager,
		docker:           docker,
		exec:             exec,
		poller:           poller,
		logger:           logger.With(slog.String("service", "stack")),
		upCounter:        upCounter,
		downCounter:      downCounter,
		upDuration:       upDuration,
	}
}

// Up brings the stack to a running state: prior containers removed, network
// and volumes ensured, credentials and TLS material in place, and the three
// containers started in dependency order. The app container starts only
// after the database announced readiness in its log. Returns the run ID.
func (s *StackService) Up(ctx context.Context, p StackParams) (string, error) {
	tracer := otel.Tracer("pressgang/service")
	ctx, span := tracer.Start(ctx, "StackUp")
	defer span.End()

	span.SetAttributes(attribute.String("stack.domain", p.Domain))

	startTime := time.Now()
	runID := uuid.New().String()

	// Bind-mount sources must be absolute or docker parses them as named
	// volumes. Stack files usually carry ./sites/<domain>.
	siteDir, err := filepath.Abs(p.SiteDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve site directory %s: %w", p.SiteDir, err)
	}
	p.SiteDir = siteDir

	s.logger.Info("bringing stack up",
		slog.String("domain", p.Domain),
		slog.String("run_id", runID),
	)

	// Idempotent re-run: clear out containers from a previous run first.
	if err := s.containerManager.Remove(ctx, p.Database.Name, p.App.Name, p.Proxy.Name); err != nil {
		return "", fmt.Errorf("failed to remove previous containers: %w", err)
	}

	if err := s.ensureNetwork(ctx, p.Network); err != nil {
		return "", err
	}
	for _, volume := range []string{p.DBVolume, p.SiteVolume} {
		if err := s.ensureVolume(ctx, volume); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(p.SiteDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create site directory %s: %w", p.SiteDir, err)
	}

	creds, err := s.ensureCredentials(p)
	if err != nil {
		return "", err
	}

	certDir := filepath.Join(p.SiteDir, "certs")
	if _, err := s.certManager.Generate(ctx, s.exec, p.Domain, certDir); err != nil {
		return "", fmt.Errorf("failed to generate TLS material: %w", err)
	}

	confPath, err := s.proxyManager.RenderSiteConfig(
		filepath.Join(p.SiteDir, "nginx"),
		proxy.Vars(p.Domain, p.App.Name, p.Proxy.HTTPPort, p.Proxy.HTTPSPort),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render proxy configuration: %w", err)
	}

	if err := s.containerManager.StartDatabase(ctx, containers.DatabaseStart{
		Name:         p.Database.Name,
		Image:        p.Database.Image,
		Network:      p.Network,
		Volume:       p.DBVolume,
		Database:     p.Database.Database,
		User:         p.Database.User,
		RootPassword: creds.RootPassword,
		Password:     creds.AppPassword,
		RunID:        runID,
	}); err != nil {
		return "", err
	}

	s.logger.Info("waiting for database readiness",
		slog.String("container", p.Database.Name),
		slog.String("marker", p.Database.ReadyMarker),
	)

	logSource := func(ctx context.Context) (string, error) {
		return s.containerManager.Logs(ctx, p.Database.Name, 0)
	}
	if err := s.poller.WaitForMarker(ctx, logSource, p.Database.ReadyMarker); err != nil {
		return "", fmt.Errorf("database %s never became ready: %w", p.Database.Name, err)
	}

	if err := s.containerManager.StartApp(ctx, containers.AppStart{
		Name:       p.App.Name,
		Image:      p.App.Image,
		Network:    p.Network,
		Volume:     p.SiteVolume,
		DBHost:     p.Database.Name,
		DBName:     p.Database.Database,
		DBUser:     p.Database.User,
		DBPassword: creds.AppPassword,
		RunID:      runID,
	}); err != nil {
		return "", err
	}

	if err := s.containerManager.StartProxy(ctx, containers.ProxyStart{
		Name:      p.Proxy.Name,
		Image:     p.Proxy.Image,
		Network:   p.Network,
		ConfPath:  confPath,
		CertDir:   certDir,
		ConfMount: proxy.ContainerConfPath,
		CertMount: proxy.ContainerCertDir,
		HTTPPort:  p.Proxy.HTTPPort,
		HTTPSPort: p.Proxy.HTTPSPort,
		RunID:     runID,
	}); err != nil {
		return "", err
	}

	if s.upCounter != nil {
		s.upCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stack.domain", p.Domain)))
	}
	if s.upDuration != nil {
		s.upDuration.Record(ctx, time.Since(startTime).Seconds())
	}

	s.logger.Info("stack is up",
		slog.String("domain", p.Domain),
		slog.String("run_id", runID),
		slog.Duration("took", time.Since(startTime)),
	)

	return runID, nil
}

// Down removes the stack's containers. With removeData it also removes the
// network and both volumes, collecting everything Up ever created.
func (s *StackService) Down(ctx context.Context, p StackParams, removeData bool) error {
	tracer := otel.Tracer("pressgang/service")
	ctx, span := tracer.Start(ctx, "StackDown")
	defer span.End()

	s.logger.Info("taking stack down",
		slog.String("domain", p.Domain),
		slog.Bool("remove_data", removeData),
	)

	if err := s.containerManager.Remove(ctx, p.Proxy.Name, p.App.Name, p.Database.Name); err != nil {
		return fmt.Errorf("failed to remove containers: %w", err)
	}

	if removeData {
		if err := s.docker.RemoveNetwork(ctx, p.Network); err != nil {
			return err
		}
		for _, volume := range []string{p.DBVolume, p.SiteVolume} {
			if err := s.docker.RemoveVolume(ctx, volume); err != nil {
				return err
			}
		}
		s.logger.Info("removed network and volumes", slog.String("network", p.Network))
	}

	if s.downCounter != nil {
		s.downCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stack.domain", p.Domain)))
	}

	return nil
}

// Status reports the stack's containers in startup order.
func (s *StackService) Status(ctx context.Context, p StackParams) ([]ContainerState, error) {
	states := make([]ContainerState, 0, 3)

	for _, name := range []string{p.Database.Name, p.App.Name, p.Proxy.Name} {
		info, err := s.containerManager.Inspect(ctx, name)
		if err != nil {
			return nil, err
		}
		if info == nil {
			states = append(states, ContainerState{Name: name, State: "absent"})
			continue
		}
		states = append(states, ContainerState{
			Name:    info.Name,
			Image:   info.Image,
			State:   info.State,
			Running: info.Running,
			Ports:   info.Ports,
		})
	}

	return states, nil
}

func (s *StackService) ensureNetwork(ctx context.Context, name string) error {
	exists, err := s.docker.NetworkExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("network already exists", slog.String("network", name))
		return nil
	}
	if err := s.docker.CreateNetwork(ctx, name); err != nil {
		return err
	}
	s.logger.Info("created network", slog.String("network", name))
	return nil
}

func (s *StackService) ensureVolume(ctx context.Context, name string) error {
	exists, err := s.docker.VolumeExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("volume already exists", slog.String("volume", name))
		return nil
	}
	if err := s.docker.CreateVolume(ctx, name); err != nil {
		return err
	}
	s.logger.Info("created volume", slog.String("volume", name))
	return nil
}

// ensureCredentials resolves passwords in precedence order: explicit stack
// values, persisted credentials from a previous run, freshly generated ones.
// Generated credentials are persisted so a re-run can still open the data
// volume.
func (s *StackService) ensureCredentials(p StackParams) (secrets.Credentials, error) {
	if p.Database.RootPassword != "" && p.Database.Password != "" {
		return secrets.Credentials{
			RootPassword: p.Database.RootPassword,
			AppPassword:  p.Database.Password,
		}, nil
	}

	path := filepath.Join(p.SiteDir, credentialsFile)

	persisted, err := secrets.Load(path)
	if err != nil {
		return secrets.Credentials{}, err
	}
	if persisted != nil {
		s.logger.Debug("reusing persisted credentials", slog.String("path", path))
		creds := *persisted
		applyOverrides(&creds, p)
		return creds, nil
	}

	creds, err := secrets.Generate()
	if err != nil {
		return secrets.Credentials{}, err
	}
	applyOverrides(&creds, p)

	if err := secrets.Save(path, creds); err != nil {
		return secrets.Credentials{}, err
	}
	s.logger.Info("generated database credentials", slog.String("path", path))

	return creds, nil
}

func applyOverrides(creds *secrets.Credentials, p StackParams) {
	if p.Database.RootPassword != "" {
		creds.RootPassword = p.Database.RootPassword
	}
	if p.Database.Password != "" {
		creds.AppPassword = p.Database.Password
	}
}

// Verify runs the stack's acceptance checks: certificate shape, the
// HTTP-to-HTTPS redirect, and an HTTPS response proxied from the app.
func (s *StackService) Verify(ctx context.Context, p StackParams) (VerifyReport, error) {
	report := VerifyReport{Passed: true}

	report.add(s.checkCertificate(p))
	report.add(s.checkRedirect(ctx, p))
	report.add(s.checkHTTPS(ctx, p))

	return report, nil
}

func (r *VerifyReport) add(check VerifyCheck) {
	r.Checks = append(r.Checks, check)
	if !check.Passed {
		r.Passed = false
	}
}

func (s *StackService) checkCertificate(p StackParams) VerifyCheck {
	check := VerifyCheck{Name: "certificate"}

	material := certificate.Paths(filepath.Join(p.SiteDir, "certs"), p.Domain)
	cert, err := s.certManager.LoadCertificate(material.CertPath)
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	if cert.Subject.CommonName != p.Domain {
		check.Detail = fmt.Sprintf("common name %q, want %q", cert.Subject.CommonName, p.Domain)
		return check
	}

	validity := cert.NotAfter.Sub(cert.NotBefore)
	wanted := time.Duration(certificate.ValidityDays) * 24 * time.Hour
	// openssl rounds the window to whole seconds; allow a day of slack.
	if validity < wanted-24*time.Hour || validity > wanted+24*time.Hour {
		check.Detail = fmt.Sprintf("validity window %s, want about %d days", validity, certificate.ValidityDays)
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("CN=%s, valid %s to %s",
		cert.Subject.CommonName,
		cert.NotBefore.Format(time.DateOnly),
		cert.NotAfter.Format(time.DateOnly),
	)
	return check
}

func (s *StackService) httpBase(p StackParams) string {
	if s.verifyHTTPBase != "" {
		return s.verifyHTTPBase
	}
	return fmt.Sprintf("http://%s:%d", p.Domain, p.Proxy.HTTPPort)
}

func (s *StackService) httpsBase(p StackParams) string {
	if s.verifyHTTPSBase != "" {
		return s.verifyHTTPSBase
	}
	return fmt.Sprintf("https://%s:%d", p.Domain, p.Proxy.HTTPSPort)
}

func (s *StackService) checkRedirect(ctx context.Context, p StackParams) VerifyCheck {
	check := VerifyCheck{Name: "http-redirect"}

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.httpBase(p)+"/", nil)
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	resp, err := client.Do(req)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		check.Detail = fmt.Sprintf("status %d, want %d", resp.StatusCode, http.StatusMovedPermanently)
		return check
	}

	location := resp.Header.Get("Location")
	// Scheme comparison is case-insensitive (RFC 3986).
	if !strings.HasPrefix(strings.ToLower(location), "https://") {
		check.Detail = fmt.Sprintf("redirect location %q is not HTTPS", location)
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("301 to %s", location)
	return check
}

func (s *StackService) checkHTTPS(ctx context.Context, p StackParams) VerifyCheck {
	check := VerifyCheck{Name: "https-response"}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			// The stack serves a self-signed certificate.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.httpsBase(p)+"/", nil)
	if err != nil {
		check.Detail = err.Error()
		return check
	}

	resp, err := client.Do(req)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		check.Detail = fmt.Sprintf("status %d from the app", resp.StatusCode)
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("status %d", resp.StatusCode)
	return check
}
