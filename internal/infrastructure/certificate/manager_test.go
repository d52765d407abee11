package certificate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// recordingExecutor captures every command line it is asked to run.
type recordingExecutor struct {
	commands [][]string
}

func (e *recordingExecutor) Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (int, error) {
	e.commands = append(e.commands, append([]string{command}, args...))
	return 0, nil
}

func (e *recordingExecutor) Name() string { return "recording" }

func TestGenerateInvokesOpenSSL(t *testing.T) {
	exec := &recordingExecutor{}
	manager := NewManager(slog.New(slog.DiscardHandler))
	certDir := filepath.Join(t.TempDir(), "certs")

	material, err := manager.Generate(context.Background(), exec, "example.test", certDir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if material.CertPath != filepath.Join(certDir, "example.test.crt") {
		t.Fatalf("cert path: %q", material.CertPath)
	}
	if material.KeyPath != filepath.Join(certDir, "example.test.key") {
		t.Fatalf("key path: %q", material.KeyPath)
	}

	if len(exec.commands) != 1 {
		t.Fatalf("expected one command, got %d", len(exec.commands))
	}
	cmd := strings.Join(exec.commands[0], " ")
	for _, want := range []string{
		"openssl req -x509 -nodes",
		"-days 365",
		"-newkey rsa:2048",
		"-subj /CN=example.test",
		material.CertPath,
		material.KeyPath,
	} {
		if !strings.Contains(cmd, want) {
			t.Fatalf("command %q missing %q", cmd, want)
		}
	}
}

func TestLoadCertificateRejectsGarbage(t *testing.T) {
	manager := NewManager(slog.New(slog.DiscardHandler))

	path := filepath.Join(t.TempDir(), "bogus.crt")
	if err := writeFile(path, "not a certificate"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := manager.LoadCertificate(path); err == nil {
		t.Fatal("expected error for non-PEM input")
	}
}
