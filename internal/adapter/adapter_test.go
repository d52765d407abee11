package adapter

import (
	"testing"

	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/service"
	"github.com/ironbell/pressgang/internal/stackfile"
)

func TestAdaptStackFile(t *testing.T) {
	stack, err := stackfile.Parse([]byte("domain: example.test\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	params := AdaptStackFile(stack)

	if params.Domain != "example.test" {
		t.Fatalf("domain: %q", params.Domain)
	}
	if params.Network != "example-test-net" {
		t.Fatalf("network: %q", params.Network)
	}
	if params.DBVolume != "example-test-db-data" || params.SiteVolume != "example-test-site-data" {
		t.Fatalf("volumes: %q %q", params.DBVolume, params.SiteVolume)
	}
	if params.Database.ReadyMarker != "ready for connections" {
		t.Fatalf("ready marker: %q", params.Database.ReadyMarker)
	}
	if params.Proxy.HTTPPort != 80 || params.Proxy.HTTPSPort != 443 {
		t.Fatalf("ports: %d %d", params.Proxy.HTTPPort, params.Proxy.HTTPSPort)
	}
}

func TestAdaptStackSpecAppliesDefaults(t *testing.T) {
	params, err := AdaptStackSpec(api.StackSpec{Domain: "shop.example.test"})
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}

	if params.Network != "shop-example-test-net" {
		t.Fatalf("network default not applied: %q", params.Network)
	}
	if params.Database.Name != "mysql" || params.App.Name != "wordpress" || params.Proxy.Name != "nginx" {
		t.Fatalf("container name defaults: %q %q %q",
			params.Database.Name, params.App.Name, params.Proxy.Name)
	}
}

func TestAdaptStackSpecRejectsInvalidSpecs(t *testing.T) {
	cases := []struct {
		name string
		spec api.StackSpec
	}{
		{"shared volume name", api.StackSpec{
			Domain:  "shop.example.test",
			Volumes: api.VolumeSpec{Database: "data", Site: "data"},
		}},
		{"shared container name", api.StackSpec{
			Domain:   "shop.example.test",
			Database: api.DatabaseSpec{Name: "web"},
			App:      api.AppSpec{Name: "web"},
		}},
		{"shared ports", api.StackSpec{
			Domain: "shop.example.test",
			Proxy:  api.ProxySpec{HTTPPort: 443, HTTPSPort: 443},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := AdaptStackSpec(tc.spec); err == nil {
				t.Fatal("invalid spec was adapted without error")
			}
		})
	}
}

func TestAdaptVerifyReport(t *testing.T) {
	report := service.VerifyReport{
		Passed: false,
		Checks: []service.VerifyCheck{
			{Name: "certificate", Passed: true, Detail: "CN=example.test"},
			{Name: "http-redirect", Passed: false, Detail: "status 200, want 301"},
		},
	}

	resp := AdaptVerifyReport(report)

	if resp.Passed {
		t.Fatal("report with a failed check adapted as passed")
	}
	if len(resp.Checks) != 2 || resp.Checks[1].Detail != "status 200, want 301" {
		t.Fatalf("checks not carried over: %+v", resp.Checks)
	}
}

func TestAdaptCreateMachine(t *testing.T) {
	req := api.CreateMachineRequest{
		Name:       "dev-1",
		VCPU:       4,
		MemoryMB:   4096,
		DiskPath:   "/var/lib/machines/dev-1.qcow2",
		DiskSizeGB: 40,
		Users: []api.UserConfig{
			{Username: "dev", SSHAuthorizedKeys: []string{"ssh-ed25519 AAA dev@host"}},
		},
		Packages: []string{"curl"},
	}

	params := AdaptCreateMachine(req)

	if params.Name != "dev-1" || params.VCPU != 4 || params.MemoryMB != 4096 {
		t.Fatalf("basic fields: %+v", params)
	}
	if len(params.Users) != 1 || params.Users[0].Username != "dev" {
		t.Fatalf("users: %+v", params.Users)
	}
	if len(params.Packages) != 1 || params.Packages[0] != "curl" {
		t.Fatalf("packages: %+v", params.Packages)
	}
}
