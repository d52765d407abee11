// Package adapter converts between the wire contracts (internal/api), the
// stack file format (internal/stackfile) and service parameters.
package adapter

import (
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/service"
	"github.com/ironbell/pressgang/internal/stackfile"
)

// AdaptStackFile converts a loaded stack file to service params.
func AdaptStackFile(stack *stackfile.Stack) service.StackParams {
	return service.StackParams{
		Domain:     stack.Domain,
		SiteDir:    stack.SiteDir,
		Network:    stack.Network,
		DBVolume:   stack.Volumes.Database,
		SiteVolume: stack.Volumes.Site,
		Database: service.DatabaseParams{
			Name:         stack.Database.Name,
			Image:        stack.Database.Image,
			Database:     stack.Database.Database,
			User:         stack.Database.User,
			RootPassword: stack.Database.RootPassword,
			Password:     stack.Database.Password,
			ReadyMarker:  stack.Database.ReadyMarker,
		},
		App: service.AppParams{
			Name:  stack.App.Name,
			Image: stack.App.Image,
		},
		Proxy: service.ProxyParams{
			Name:      stack.Proxy.Name,
			Image:     stack.Proxy.Image,
			HTTPPort:  stack.Proxy.HTTPPort,
			HTTPSPort: stack.Proxy.HTTPSPort,
		},
	}
}

// AdaptStackSpec converts an API stack spec to service params. Defaults and
// validation are applied the same way the stack file loader applies them.
func AdaptStackSpec(spec api.StackSpec) (service.StackParams, error) {
	stack := &stackfile.Stack{
		Domain:  spec.Domain,
		SiteDir: spec.SiteDir,
		Network: spec.Network,
		Volumes: stackfile.VolumeSpec{
			Database: spec.Volumes.Database,
			Site:     spec.Volumes.Site,
		},
		Database: stackfile.DatabaseSpec{
			Name:         spec.Database.Name,
			Image:        spec.Database.Image,
			Database:     spec.Database.Database,
			User:         spec.Database.User,
			RootPassword: spec.Database.RootPassword,
			Password:     spec.Database.Password,
			ReadyMarker:  spec.Database.ReadyMarker,
		},
		App: stackfile.AppSpec{
			Name:  spec.App.Name,
			Image: spec.App.Image,
		},
		Proxy: stackfile.ProxySpec{
			Name:      spec.Proxy.Name,
			Image:     spec.Proxy.Image,
			HTTPPort:  spec.Proxy.HTTPPort,
			HTTPSPort: spec.Proxy.HTTPSPort,
		},
	}
	stack.Normalize()
	if err := stack.Validate(); err != nil {
		return service.StackParams{}, err
	}
	return AdaptStackFile(stack), nil
}

// AdaptContainerStates converts service container states to the API shape.
func AdaptContainerStates(states []service.ContainerState) []api.ContainerStatus {
	result := make([]api.ContainerStatus, len(states))
	for i, state := range states {
		result[i] = api.ContainerStatus{
			Name:    state.Name,
			Image:   state.Image,
			State:   state.State,
			Running: state.Running,
			Ports:   state.Ports,
		}
	}
	return result
}

// AdaptVerifyReport converts a service verify report to the API shape.
func AdaptVerifyReport(report service.VerifyReport) api.VerifyStackResponse {
	checks := make([]api.CheckResult, len(report.Checks))
	for i, check := range report.Checks {
		checks[i] = api.CheckResult{
			Name:   check.Name,
			Passed: check.Passed,
			Detail: check.Detail,
		}
	}
	return api.VerifyStackResponse{
		Passed: report.Passed,
		Checks: checks,
	}
}

// AdaptCreateMachine converts a machine create request to service params.
func AdaptCreateMachine(req api.CreateMachineRequest) service.CreateMachineParams {
	users := make([]service.UserConfig, len(req.Users))
	for i, u := range req.Users {
		users[i] = service.UserConfig{
			Username:          u.Username,
			Password:          u.Password,
			SSHAuthorizedKeys: u.SSHAuthorizedKeys,
		}
	}

	return service.CreateMachineParams{
		Name:                   req.Name,
		VCPU:                   req.VCPU,
		MemoryMB:               req.MemoryMB,
		DiskPath:               req.DiskPath,
		DiskSizeGB:             req.DiskSizeGB,
		BaseImagePath:          req.BaseImagePath,
		BridgeNetworkInterface: req.BridgeNetworkInterface,
		CloudInitISOPath:       req.CloudInitISOPath,
		Users:                  users,
		Packages:               req.Packages,
		Runcmds:                req.Runcmds,
	}
}

// AdaptProvisionMachine converts a provision request to service params.
func AdaptProvisionMachine(req api.ProvisionMachineRequest) service.ProvisionMachineParams {
	return service.ProvisionMachineParams{
		Name: req.Name,
		SSH: service.SSHParams{
			Host:    req.SSH.Host,
			Port:    req.SSH.Port,
			User:    req.SSH.User,
			KeyPath: req.SSH.KeyPath,
		},
	}
}
