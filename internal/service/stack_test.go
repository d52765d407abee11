package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ironbell/pressgang/internal/infrastructure/certificate"
	"github.com/ironbell/pressgang/internal/infrastructure/containers"
	"github.com/ironbell/pressgang/internal/infrastructure/proxy"
	"github.com/ironbell/pressgang/internal/readiness"
	"github.com/ironbell/pressgang/pkg/constants"
	"github.com/ironbell/pressgang/pkg/executor/dockercli"
	"github.com/ironbell/pressgang/pkg/templator"
)

// scriptedExecutor plays the role of the docker and openssl binaries. It
// records every command line and fakes the handful of behaviors the stack
// service depends on.
type scriptedExecutor struct {
	mu          sync.Mutex
	calls       []string
	logsCalls   int
	readyAfter  int // log polls before the marker shows up
	neverReady  bool
	readyMarker string
	inspect     map[string]string // container name to inspect JSON
}

func (f *scriptedExecutor) Name() string { return "scripted" }

func (f *scriptedExecutor) Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (int, error) {
	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}

	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(line, "docker rm -f"):
		fmt.Fprint(stderr, "Error response from daemon: No such container")
		return 1, errors.New("exit status 1")
	case strings.Contains(line, "network inspect"), strings.Contains(line, "volume inspect"):
		fmt.Fprint(stderr, "Error: No such object")
		return 1, errors.New("exit status 1")
	case strings.HasPrefix(line, "docker inspect"):
		name := line[strings.LastIndex(line, " ")+1:]
		if body, ok := f.inspect[name]; ok {
			fmt.Fprint(stdout, body)
			return 0, nil
		}
		fmt.Fprint(stderr, "Error: No such object: "+name)
		return 1, errors.New("exit status 1")
	case strings.HasPrefix(line, "docker logs"):
		f.mu.Lock()
		f.logsCalls++
		ready := !f.neverReady && f.logsCalls > f.readyAfter
		f.mu.Unlock()
		if ready {
			fmt.Fprintf(stdout, "[Server] init done\n[Server] %s\n", f.readyMarker)
		} else {
			fmt.Fprint(stdout, "[Server] initializing\n")
		}
		return 0, nil
	default:
		return 0, nil
	}
}

func (f *scriptedExecutor) callIndex(t *testing.T, substr string) int {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, call := range f.calls {
		if strings.Contains(call, substr) {
			return i
		}
	}
	return -1
}

func (f *scriptedExecutor) callLine(substr string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if strings.Contains(call, substr) {
			return call
		}
	}
	return ""
}

func newTestService(t *testing.T, fake *scriptedExecutor) *StackService {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	engine := templator.NewEngine()
	if err := engine.LoadTemplate(constants.TemplateNginxSite, "../../templates/nginx/site.conf.tpl"); err != nil {
		t.Fatalf("load template: %v", err)
	}

	docker := dockercli.New(fake, "docker")
	return NewStackService(
		containers.NewManager(docker, log),
		certificate.NewManager(log),
		proxy.NewManager(engine, log),
		docker,
		fake,
		readiness.NewPoller(time.Millisecond, time.Second, log),
		log,
	)
}

func testParams(t *testing.T) StackParams {
	t.Helper()
	return StackParams{
		Domain:     "example.test",
		SiteDir:    filepath.Join(t.TempDir(), "site"),
		Network:    "example-net",
		DBVolume:   "example-db-data",
		SiteVolume: "example-site-data",
		Database: DatabaseParams{
			Name:        "mysql",
			Image:       "mysql:8.0",
			Database:    "wordpress",
			User:        "wordpress",
			ReadyMarker: "ready for connections",
		},
		App:   AppParams{Name: "wordpress", Image: "wordpress:latest"},
		Proxy: ProxyParams{Name: "nginx", Image: "nginx:stable", HTTPPort: 80, HTTPSPort: 443},
	}
}

func TestUpStartsContainersInDependencyOrder(t *testing.T) {
	fake := &scriptedExecutor{readyAfter: 2, readyMarker: "ready for connections"}
	svc := newTestService(t, fake)
	p := testParams(t)

	runID, err := svc.Up(context.Background(), p)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run ID")
	}

	dbRun := fake.callIndex(t, "run -d --name mysql")
	appRun := fake.callIndex(t, "run -d --name wordpress")
	proxyRun := fake.callIndex(t, "run -d --name nginx")
	netCreate := fake.callIndex(t, "network create")

	for what, idx := range map[string]int{
		"network create": netCreate,
		"mysql run":      dbRun,
		"wordpress run":  appRun,
		"nginx run":      proxyRun,
	} {
		if idx == -1 {
			t.Fatalf("%s never happened; calls: %v", what, fake.calls)
		}
	}

	if !(netCreate < dbRun && dbRun < appRun && appRun < proxyRun) {
		t.Fatalf("startup order wrong: network=%d db=%d app=%d proxy=%d",
			netCreate, dbRun, appRun, proxyRun)
	}
	if fake.logsCalls < 3 {
		t.Fatalf("readiness was not polled until the marker appeared (%d polls)", fake.logsCalls)
	}
}

func TestUpResolvesRelativeSiteDirForBindMounts(t *testing.T) {
	fake := &scriptedExecutor{readyAfter: 0, readyMarker: "ready for connections"}
	svc := newTestService(t, fake)
	p := testParams(t)

	// The stack file default form. Docker rejects relative bind sources.
	t.Chdir(t.TempDir())
	p.SiteDir = "./sites/example.test"

	if _, err := svc.Up(context.Background(), p); err != nil {
		t.Fatalf("up: %v", err)
	}

	proxyLine := fake.callLine("run -d --name nginx")
	fields := strings.Fields(proxyLine)
	binds := 0
	for i, field := range fields {
		if field != "-v" || i+1 >= len(fields) {
			continue
		}
		binds++
		source := fields[i+1][:strings.Index(fields[i+1], ":")]
		if !filepath.IsAbs(source) {
			t.Fatalf("bind source %q is not absolute in: %s", source, proxyLine)
		}
	}
	if binds != 2 {
		t.Fatalf("expected 2 bind mounts on the proxy, got %d: %s", binds, proxyLine)
	}
}

func TestUpWiresCredentialsIntoBothContainers(t *testing.T) {
	fake := &scriptedExecutor{readyAfter: 0, readyMarker: "ready for connections"}
	svc := newTestService(t, fake)
	p := testParams(t)

	if _, err := svc.Up(context.Background(), p); err != nil {
		t.Fatalf("up: %v", err)
	}

	dbLine := fake.callLine("run -d --name mysql")
	appLine := fake.callLine("run -d --name wordpress")

	password := extractEnv(t, appLine, "WORDPRESS_DB_PASSWORD=")
	if !strings.Contains(dbLine, "MYSQL_PASSWORD="+password) {
		t.Fatalf("database and app containers got different passwords:\n%s\n%s", dbLine, appLine)
	}
	if !strings.Contains(appLine, "WORDPRESS_DB_HOST=mysql") {
		t.Fatalf("app is not pointed at the database container: %s", appLine)
	}

	if _, err := os.Stat(filepath.Join(p.SiteDir, "credentials.json")); err != nil {
		t.Fatalf("credentials were not persisted: %v", err)
	}

	conf, err := os.ReadFile(filepath.Join(p.SiteDir, "nginx", "default.conf"))
	if err != nil {
		t.Fatalf("proxy config was not rendered: %v", err)
	}
	if !strings.Contains(string(conf), "server_name example.test;") {
		t.Fatalf("rendered proxy config is not for the stack domain:\n%s", conf)
	}
}

func TestUpReusesPersistedCredentials(t *testing.T) {
	fake := &scriptedExecutor{readyAfter: 0, readyMarker: "ready for connections"}
	svc := newTestService(t, fake)
	p := testParams(t)

	if _, err := svc.Up(context.Background(), p); err != nil {
		t.Fatalf("first up: %v", err)
	}
	firstPassword := extractEnv(t, fake.callLine("run -d --name mysql"), "MYSQL_ROOT_PASSWORD=")

	secondFake := &scriptedExecutor{readyAfter: 0, readyMarker: "ready for connections"}
	secondSvc := newTestService(t, secondFake)

	if _, err := secondSvc.Up(context.Background(), p); err != nil {
		t.Fatalf("second up: %v", err)
	}
	secondPassword := extractEnv(t, secondFake.callLine("run -d --name mysql"), "MYSQL_ROOT_PASSWORD=")

	if firstPassword != secondPassword {
		t.Fatal("re-run regenerated credentials instead of reusing the persisted ones")
	}
}

func TestUpDoesNotStartAppWhenDatabaseNeverReady(t *testing.T) {
	fake := &scriptedExecutor{neverReady: true, readyMarker: "ready for connections"}
	svc := newTestService(t, fake)
	svc.poller = readiness.NewPoller(time.Millisecond, 30*time.Millisecond, slog.New(slog.DiscardHandler))
	p := testParams(t)

	_, err := svc.Up(context.Background(), p)
	if err == nil {
		t.Fatal("expected readiness timeout error")
	}
	if !strings.Contains(err.Error(), "never became ready") {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx := fake.callIndex(t, "run -d --name wordpress"); idx != -1 {
		t.Fatal("app container was started although the database never became ready")
	}
	if idx := fake.callIndex(t, "run -d --name nginx"); idx != -1 {
		t.Fatal("proxy container was started although the database never became ready")
	}
}

func TestStatusReportsAbsentContainers(t *testing.T) {
	fake := &scriptedExecutor{inspect: map[string]string{
		"mysql": `[{"Name":"/mysql","Config":{"Image":"mysql:8.0"},"State":{"Status":"running","Running":true}}]`,
	}}
	svc := newTestService(t, fake)
	p := testParams(t)

	states, err := svc.Status(context.Background(), p)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("got %d states, want 3", len(states))
	}

	if states[0].Name != "mysql" || !states[0].Running || states[0].State != "running" {
		t.Fatalf("database state: %+v", states[0])
	}
	for _, state := range states[1:] {
		if state.State != "absent" || state.Running {
			t.Fatalf("missing container not reported absent: %+v", state)
		}
	}
}

func TestDownRemovesContainersAndOptionallyData(t *testing.T) {
	fake := &scriptedExecutor{}
	svc := newTestService(t, fake)
	p := testParams(t)

	if err := svc.Down(context.Background(), p, false); err != nil {
		t.Fatalf("down: %v", err)
	}
	if idx := fake.callIndex(t, "volume rm"); idx != -1 {
		t.Fatal("down without remove-data removed volumes")
	}

	fake = &scriptedExecutor{}
	svc = newTestService(t, fake)
	if err := svc.Down(context.Background(), p, true); err != nil {
		t.Fatalf("down with data: %v", err)
	}
	for _, want := range []string{
		"rm -f nginx", "rm -f wordpress", "rm -f mysql",
		"network rm example-net",
		"volume rm example-db-data",
		"volume rm example-site-data",
	} {
		if fake.callIndex(t, want) == -1 {
			t.Fatalf("down with remove-data missed %q; calls: %v", want, fake.calls)
		}
	}
}

func extractEnv(t *testing.T, line, prefix string) string {
	t.Helper()
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, prefix) {
			return strings.TrimPrefix(field, prefix)
		}
	}
	t.Fatalf("no %s in %q", prefix, line)
	return ""
}
