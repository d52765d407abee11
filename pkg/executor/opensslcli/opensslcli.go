// Package opensslcli wraps the openssl binary for self-signed certificate
// generation.
package opensslcli

import (
	"context"
	"fmt"

	"github.com/ironbell/pressgang/pkg/executor"
)

// SelfSignedOptions describes a self-signed certificate request.
type SelfSignedOptions struct {
	CommonName string
	CertPath   string
	KeyPath    string
	Days       int
	KeyBits    int
}

// GenerateSelfSigned issues `openssl req -x509` for the given options,
// writing the certificate and private key to the configured paths.
func GenerateSelfSigned(ctx context.Context, exec executor.Executor, opts SelfSignedOptions) error {
	days := opts.Days
	if days <= 0 {
		days = 365
	}
	keyBits := opts.KeyBits
	if keyBits <= 0 {
		keyBits = 2048
	}

	args := []string{
		"req", "-x509", "-nodes",
		"-days", fmt.Sprintf("%d", days),
		"-newkey", fmt.Sprintf("rsa:%d", keyBits),
		"-keyout", opts.KeyPath,
		"-out", opts.CertPath,
		"-subj", fmt.Sprintf("/CN=%s", opts.CommonName),
	}

	result, err := executor.RunAndCapture(ctx, exec, "openssl", args...)
	if err != nil {
		return fmt.Errorf("openssl req failed: %w\nstdout: %s\nstderr: %s",
			err, result.Stdout, result.Stderr)
	}

	return nil
}
