package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	NginxSiteTemplate              string
	LibvirtDomainTemplate          string
	CloudInitUserDataTemplate      string
	CloudInitMetaDataTemplate      string
	CloudInitNetworkConfigTemplate string
	LibvirtURI                     string
	DockerBinary                   string
	ReadinessTimeout               time.Duration
	ReadinessInterval              time.Duration
	LogLevel                       string
	LogFormat                      string
	TelemetryEnabled               bool
}

// Load reads configuration from PRESSGANG_* environment variables with
// defaults suitable for running from the repository root.
func Load() (*Config, error) {
	viper.SetDefault("nginx_site_template", "./templates/nginx/site.conf.tpl")
	viper.SetDefault("libvirt_domain_template", "./templates/libvirt/domain.xml.tpl")
	viper.SetDefault("cloudinit_user_data_template", "./templates/cloudinit/user-data.tpl")
	viper.SetDefault("cloudinit_meta_data_template", "./templates/cloudinit/meta-data.tpl")
	viper.SetDefault("cloudinit_network_config_template", "")
	viper.SetDefault("libvirt_uri", "qemu:///system")
	viper.SetDefault("docker_binary", "docker")
	viper.SetDefault("readiness_timeout", "5m")
	viper.SetDefault("readiness_interval", "2s")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("telemetry_enabled", false)

	viper.SetEnvPrefix("pressgang")
	viper.AutomaticEnv()

	cfg := &Config{
		NginxSiteTemplate:              viper.GetString("nginx_site_template"),
		LibvirtDomainTemplate:          viper.GetString("libvirt_domain_template"),
		CloudInitUserDataTemplate:      viper.GetString("cloudinit_user_data_template"),
		CloudInitMetaDataTemplate:      viper.GetString("cloudinit_meta_data_template"),
		CloudInitNetworkConfigTemplate: viper.GetString("cloudinit_network_config_template"),
		LibvirtURI:                     viper.GetString("libvirt_uri"),
		DockerBinary:                   viper.GetString("docker_binary"),
		ReadinessTimeout:               viper.GetDuration("readiness_timeout"),
		ReadinessInterval:              viper.GetDuration("readiness_interval"),
		LogLevel:                       viper.GetString("log_level"),
		LogFormat:                      viper.GetString("log_format"),
		TelemetryEnabled:               viper.GetBool("telemetry_enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ReadinessTimeout <= 0 {
		return fmt.Errorf("readiness timeout must be positive, got %s", c.ReadinessTimeout)
	}
	if c.ReadinessInterval <= 0 {
		return fmt.Errorf("readiness interval must be positive, got %s", c.ReadinessInterval)
	}
	if c.ReadinessInterval > c.ReadinessTimeout {
		return fmt.Errorf("readiness interval %s exceeds timeout %s", c.ReadinessInterval, c.ReadinessTimeout)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.LogFormat)
	}

	return nil
}

// ValidateStackTemplates checks the templates the stack commands render.
func (c *Config) ValidateStackTemplates() error {
	if err := validateFileExists(c.NginxSiteTemplate); err != nil {
		return fmt.Errorf("nginx site template: %w", err)
	}
	return nil
}

// ValidateMachineTemplates checks the templates the machine commands render.
func (c *Config) ValidateMachineTemplates() error {
	if err := validateFileExists(c.LibvirtDomainTemplate); err != nil {
		return fmt.Errorf("libvirt domain template: %w", err)
	}

	if err := validateFileExists(c.CloudInitUserDataTemplate); err != nil {
		return fmt.Errorf("cloud-init user-data template: %w", err)
	}

	if c.CloudInitMetaDataTemplate != "" {
		if err := validateFileExists(c.CloudInitMetaDataTemplate); err != nil {
			return fmt.Errorf("cloud-init meta-data template: %w", err)
		}
	}

	if c.CloudInitNetworkConfigTemplate != "" {
		if err := validateFileExists(c.CloudInitNetworkConfigTemplate); err != nil {
			return fmt.Errorf("cloud-init network-config template: %w", err)
		}
	}

	return nil
}

func validateFileExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", path)
	} else if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	return nil
}
