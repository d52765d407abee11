// Package stackfile loads the declarative YAML definition of a site stack:
// one database container, one application container and one TLS proxy wired
// over a bridge network with named volumes.
package stackfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stack is the parsed stack definition with defaults applied.
type Stack struct {
	Domain   string       `yaml:"domain"`
	SiteDir  string       `yaml:"site_dir"`
	Network  string       `yaml:"network"`
	Volumes  VolumeSpec   `yaml:"volumes"`
	Database DatabaseSpec `yaml:"database"`
	App      AppSpec      `yaml:"app"`
	Proxy    ProxySpec    `yaml:"proxy"`
}

// VolumeSpec names the two persistent volumes.
type VolumeSpec struct {
	Database string `yaml:"database"`
	Site     string `yaml:"site"`
}

// DatabaseSpec configures the database container.
type DatabaseSpec struct {
	Name         string `yaml:"name"`
	Image        string `yaml:"image"`
	Database     string `yaml:"database"`
	User         string `yaml:"user"`
	RootPassword string `yaml:"root_password"`
	Password     string `yaml:"password"`
	ReadyMarker  string `yaml:"ready_marker"`
}

// AppSpec configures the application container.
type AppSpec struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

// ProxySpec configures the TLS-terminating proxy container.
type ProxySpec struct {
	Name      string `yaml:"name"`
	Image     string `yaml:"image"`
	HTTPPort  int    `yaml:"http_port"`
	HTTPSPort int    `yaml:"https_port"`
}

// Load reads and validates a stack file.
func Load(path string) (*Stack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a stack definition, applies defaults and validates it.
func Parse(data []byte) (*Stack, error) {
	var stack Stack
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&stack); err != nil {
		return nil, fmt.Errorf("failed to parse stack file: %w", err)
	}

	stack.Normalize()
	if err := stack.Validate(); err != nil {
		return nil, err
	}
	return &stack, nil
}

// Normalize fills unset fields with their defaults.
func (s *Stack) Normalize() {
	slug := strings.ReplaceAll(s.Domain, ".", "-")

	if s.SiteDir == "" {
		s.SiteDir = "./sites/" + s.Domain
	}
	if s.Network == "" {
		s.Network = slug + "-net"
	}
	if s.Volumes.Database == "" {
		s.Volumes.Database = slug + "-db-data"
	}
	if s.Volumes.Site == "" {
		s.Volumes.Site = slug + "-site-data"
	}
	if s.Database.Name == "" {
		s.Database.Name = "mysql"
	}
	if s.Database.Image == "" {
		s.Database.Image = "mysql:8.0"
	}
	if s.Database.Database == "" {
		s.Database.Database = "wordpress"
	}
	if s.Database.User == "" {
		s.Database.User = "wordpress"
	}
	if s.Database.ReadyMarker == "" {
		s.Database.ReadyMarker = "ready for connections"
	}
	if s.App.Name == "" {
		s.App.Name = "wordpress"
	}
	if s.App.Image == "" {
		s.App.Image = "wordpress:latest"
	}
	if s.Proxy.Name == "" {
		s.Proxy.Name = "nginx"
	}
	if s.Proxy.Image == "" {
		s.Proxy.Image = "nginx:stable"
	}
	if s.Proxy.HTTPPort == 0 {
		s.Proxy.HTTPPort = 80
	}
	if s.Proxy.HTTPSPort == 0 {
		s.Proxy.HTTPSPort = 443
	}
}

func (s *Stack) Validate() error {
	if strings.TrimSpace(s.Domain) == "" {
		return fmt.Errorf("stack file missing domain")
	}
	if s.Volumes.Database == s.Volumes.Site {
		return fmt.Errorf("database and site volumes must differ, both are %q", s.Volumes.Database)
	}

	names := map[string]string{}
	for role, name := range map[string]string{
		"database": s.Database.Name,
		"app":      s.App.Name,
		"proxy":    s.Proxy.Name,
	} {
		if other, taken := names[name]; taken {
			return fmt.Errorf("%s and %s containers share the name %q", other, role, name)
		}
		names[name] = role
	}

	if s.Proxy.HTTPPort == s.Proxy.HTTPSPort {
		return fmt.Errorf("http and https ports must differ, both are %d", s.Proxy.HTTPPort)
	}

	return nil
}

// ContainerNames lists the stack's container names in startup order.
func (s *Stack) ContainerNames() []string {
	return []string{s.Database.Name, s.App.Name, s.Proxy.Name}
}
