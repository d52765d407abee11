package certificate

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ironbell/pressgang/pkg/executor"
	"github.com/ironbell/pressgang/pkg/executor/opensslcli"
)

// ValidityDays is the lifetime of generated certificates.
const ValidityDays = 365

// Manager generates and inspects the self-signed TLS material for a stack.
type Manager struct {
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger.With(slog.String("component", "certificate")),
	}
}

// Material locates a certificate/key pair on the host.
type Material struct {
	CertPath string
	KeyPath  string
}

// Paths returns where the pair for a domain lives under certDir.
func Paths(certDir, domain string) Material {
	return Material{
		CertPath: filepath.Join(certDir, domain+".crt"),
		KeyPath:  filepath.Join(certDir, domain+".key"),
	}
}

// Generate issues a fresh self-signed pair for the domain, replacing any
// previous one.
func (m *Manager) Generate(ctx context.Context, exec executor.Executor, domain, certDir string) (Material, error) {
	if err := os.MkdirAll(certDir, 0o755); err != nil {
		return Material{}, fmt.Errorf("failed to create certificate directory %s: %w", certDir, err)
	}

	material := Paths(certDir, domain)

	m.logger.Debug("generating self-signed certificate",
		slog.String("domain", domain),
		slog.String("cert", material.CertPath),
	)

	err := opensslcli.GenerateSelfSigned(ctx, exec, opensslcli.SelfSignedOptions{
		CommonName: domain,
		CertPath:   material.CertPath,
		KeyPath:    material.KeyPath,
		Days:       ValidityDays,
	})
	if err != nil {
		return Material{}, err
	}

	m.logger.Info("generated self-signed certificate",
		slog.String("domain", domain),
		slog.Int("days", ValidityDays),
	)

	return material, nil
}

// LoadCertificate parses the PEM certificate at the given path.
func (m *Manager) LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate PEM block in %s", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate %s: %w", path, err)
	}
	return cert, nil
}
