package templator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.tpl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func TestRenderToBytes(t *testing.T) {
	engine := NewEngine()
	path := writeTemplate(t, "server_name {{ .Domain }};")

	if err := engine.LoadTemplate("site", path); err != nil {
		t.Fatalf("load template: %v", err)
	}
	if !engine.HasTemplate("site") {
		t.Fatal("expected template to be registered")
	}

	out, err := engine.RenderToBytes("site", map[string]string{"Domain": "example.test"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(out); got != "server_name example.test;" {
		t.Fatalf("unexpected render output: %q", got)
	}
}

func TestRenderToFile(t *testing.T) {
	engine := NewEngine()
	path := writeTemplate(t, "upstream {{ .App }}:80")

	if err := engine.LoadTemplate("site", path); err != nil {
		t.Fatalf("load template: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "site.conf")
	if err := engine.RenderToFile("site", outPath, map[string]string{"App": "wordpress"}); err != nil {
		t.Fatalf("render to file: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "wordpress:80") {
		t.Fatalf("rendered file missing substitution: %q", string(data))
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	engine := NewEngine()

	if _, err := engine.RenderToBytes("missing", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if err := engine.RenderToFile("missing", filepath.Join(t.TempDir(), "out"), nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestLoadTemplateMissingFile(t *testing.T) {
	engine := NewEngine()
	if err := engine.LoadTemplate("site", filepath.Join(t.TempDir(), "absent.tpl")); err == nil {
		t.Fatal("expected error for missing template file")
	}
}
