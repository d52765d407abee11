package containers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ironbell/pressgang/pkg/executor/dockercli"
)

// RunLabelKey marks containers started by pressgang with the provision run
// that created them.
const RunLabelKey = "pressgang.run"

// Container-side mount points of the official images.
const (
	databaseDataDir = "/var/lib/mysql"
	siteDataDir     = "/var/www/html"
)

// Manager starts and tears down the stack's containers.
type Manager struct {
	docker *dockercli.Client
	logger *slog.Logger
}

func NewManager(docker *dockercli.Client, logger *slog.Logger) *Manager {
	return &Manager{
		docker: docker,
		logger: logger.With(slog.String("component", "containers")),
	}
}

// DatabaseStart configures the database container.
type DatabaseStart struct {
	Name         string
	Image        string
	Network      string
	Volume       string
	Database     string
	User         string
	RootPassword string
	Password     string
	RunID        string
}

// StartDatabase runs the database container with its data volume attached.
func (m *Manager) StartDatabase(ctx context.Context, opts DatabaseStart) error {
	err := m.docker.RunContainer(ctx, dockercli.RunOptions{
		Name:    opts.Name,
		Image:   opts.Image,
		Network: opts.Network,
		Env: []string{
			"MYSQL_ROOT_PASSWORD=" + opts.RootPassword,
			"MYSQL_DATABASE=" + opts.Database,
			"MYSQL_USER=" + opts.User,
			"MYSQL_PASSWORD=" + opts.Password,
		},
		Volumes: []string{opts.Volume + ":" + databaseDataDir},
		Labels:  []string{RunLabelKey + "=" + opts.RunID},
		Restart: "unless-stopped",
	})
	if err != nil {
		return fmt.Errorf("failed to start database container %s: %w", opts.Name, err)
	}

	m.logger.Info("started database container",
		slog.String("name", opts.Name),
		slog.String("image", opts.Image),
	)
	return nil
}

// AppStart configures the application container.
type AppStart struct {
	Name       string
	Image      string
	Network    string
	Volume     string
	DBHost     string
	DBName     string
	DBUser     string
	DBPassword string
	RunID      string
}

// StartApp runs the application container wired to the database.
func (m *Manager) StartApp(ctx context.Context, opts AppStart) error {
	err := m.docker.RunContainer(ctx, dockercli.RunOptions{
		Name:    opts.Name,
		Image:   opts.Image,
		Network: opts.Network,
		Env: []string{
			"WORDPRESS_DB_HOST=" + opts.DBHost,
			"WORDPRESS_DB_NAME=" + opts.DBName,
			"WORDPRESS_DB_USER=" + opts.DBUser,
			"WORDPRESS_DB_PASSWORD=" + opts.DBPassword,
		},
		Volumes: []string{opts.Volume + ":" + siteDataDir},
		Labels:  []string{RunLabelKey + "=" + opts.RunID},
		Restart: "unless-stopped",
	})
	if err != nil {
		return fmt.Errorf("failed to start app container %s: %w", opts.Name, err)
	}

	m.logger.Info("started app container",
		slog.String("name", opts.Name),
		slog.String("image", opts.Image),
	)
	return nil
}

// ProxyStart configures the TLS proxy container.
type ProxyStart struct {
	Name      string
	Image     string
	Network   string
	ConfPath  string // host path of the rendered server block
	CertDir   string // host directory holding the certificate pair
	ConfMount string // container path of the server block
	CertMount string // container directory for certificates
	HTTPPort  int
	HTTPSPort int
	RunID     string
}

// StartProxy runs the proxy container with the rendered configuration and
// certificate material mounted read-only, publishing the HTTP and HTTPS
// ports on the host.
func (m *Manager) StartProxy(ctx context.Context, opts ProxyStart) error {
	err := m.docker.RunContainer(ctx, dockercli.RunOptions{
		Name:    opts.Name,
		Image:   opts.Image,
		Network: opts.Network,
		Binds: []string{
			opts.ConfPath + ":" + opts.ConfMount + ":ro",
			opts.CertDir + ":" + opts.CertMount + ":ro",
		},
		Ports: []string{
			fmt.Sprintf("%d:80", opts.HTTPPort),
			fmt.Sprintf("%d:443", opts.HTTPSPort),
		},
		Labels:  []string{RunLabelKey + "=" + opts.RunID},
		Restart: "unless-stopped",
	})
	if err != nil {
		return fmt.Errorf("failed to start proxy container %s: %w", opts.Name, err)
	}

	m.logger.Info("started proxy container",
		slog.String("name", opts.Name),
		slog.Int("http_port", opts.HTTPPort),
		slog.Int("https_port", opts.HTTPSPort),
	)
	return nil
}

// Remove force-removes the given containers, ignoring ones that do not
// exist. Used both for idempotent re-runs and teardown.
func (m *Manager) Remove(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := m.docker.RemoveContainer(ctx, name); err != nil {
			return err
		}
		m.logger.Debug("removed container if present", slog.String("name", name))
	}
	return nil
}

// Logs returns the combined log output of a container.
func (m *Manager) Logs(ctx context.Context, name string, tail int) (string, error) {
	return m.docker.ContainerLogs(ctx, name, tail)
}

// Inspect returns the container's state, or nil when it does not exist.
func (m *Manager) Inspect(ctx context.Context, name string) (*dockercli.ContainerInfo, error) {
	return m.docker.InspectContainer(ctx, name)
}
