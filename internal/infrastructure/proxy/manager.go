package proxy

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ironbell/pressgang/pkg/constants"
	"github.com/ironbell/pressgang/pkg/templator"
)

// Container-side locations the rendered configuration refers to. The host
// directories are bind-mounted there when the proxy container starts.
const (
	ContainerConfPath = "/etc/nginx/conf.d/default.conf"
	ContainerCertDir  = "/etc/nginx/certs"
)

// Manager renders the nginx server-block configuration for a stack.
type Manager struct {
	engine *templator.Engine
	logger *slog.Logger
}

func NewManager(engine *templator.Engine, logger *slog.Logger) *Manager {
	return &Manager{
		engine: engine,
		logger: logger.With(slog.String("component", "proxy")),
	}
}

// SiteVars feed the server-block template. Certificate paths are the ones
// nginx sees inside its container.
type SiteVars struct {
	Domain      string
	AppUpstream string
	HTTPPort    int
	HTTPSPort   int
	CertPath    string
	KeyPath     string
}

// Vars builds template variables for a domain proxied to the app container.
func Vars(domain, appName string, httpPort, httpsPort int) SiteVars {
	return SiteVars{
		Domain:      domain,
		AppUpstream: appName,
		HTTPPort:    httpPort,
		HTTPSPort:   httpsPort,
		CertPath:    ContainerCertDir + "/" + domain + ".crt",
		KeyPath:     ContainerCertDir + "/" + domain + ".key",
	}
}

// RenderSiteConfig writes the server-block configuration under confDir and
// returns the host path of the rendered file.
func (m *Manager) RenderSiteConfig(confDir string, vars SiteVars) (string, error) {
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", confDir, err)
	}

	outputPath := filepath.Join(confDir, "default.conf")
	if err := m.engine.RenderToFile(constants.TemplateNginxSite, outputPath, vars); err != nil {
		return "", err
	}

	m.logger.Info("rendered nginx site configuration",
		slog.String("domain", vars.Domain),
		slog.String("path", outputPath),
	)
	return outputPath, nil
}

// RenderSiteConfigBytes renders the server-block configuration in memory.
func (m *Manager) RenderSiteConfigBytes(vars SiteVars) ([]byte, error) {
	return m.engine.RenderToBytes(constants.TemplateNginxSite, vars)
}
