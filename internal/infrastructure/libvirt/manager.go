package libvirt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/runtime"
	"github.com/ironbell/pressgang/pkg/constants"
	"github.com/ironbell/pressgang/pkg/executor/fileops"
	"github.com/ironbell/pressgang/pkg/templator"
	"libvirt.org/go/libvirt"
	"libvirt.org/go/libvirtxml"
)

// Manager drives machine domains through libvirt.
type Manager struct {
	engine *templator.Engine
	logger *slog.Logger
}

func NewManager(engine *templator.Engine, logger *slog.Logger) *Manager {
	return &Manager{
		engine: engine,
		logger: logger.With(slog.String("component", "libvirt")),
	}
}

// CreateMachine defines and starts a machine domain from the template.
func (m *Manager) CreateMachine(ctx context.Context, hypervisor runtime.HypervisorContext, req api.CreateMachineRequest, machineUUID uuid.UUID) error {
	vars := DomainTemplateVars{
		Name:                   req.Name,
		UUID:                   machineUUID,
		VCPU:                   req.VCPU,
		MemoryKiB:              req.MemoryMB << 10,
		DiskPath:               req.DiskPath,
		CloudInitISOPath:       req.CloudInitISOPath,
		BridgeNetworkInterface: req.BridgeNetworkInterface,
	}

	xmlBytes, err := m.engine.RenderToBytes(constants.TemplateLibvirtDomain, vars)
	if err != nil {
		return fmt.Errorf("could not render domain XML: %w", err)
	}
	m.logger.Debug("rendered domain XML", slog.String("machine", req.Name))

	domain, err := hypervisor.Conn.DomainDefineXML(string(xmlBytes))
	if err != nil {
		return fmt.Errorf("could not define machine from domain XML: %w", err)
	}
	m.logger.Debug("defined machine in libvirt", slog.String("machine", req.Name))

	if err = domain.Create(); err != nil {
		return fmt.Errorf("could not start machine: %w", err)
	}
	m.logger.Info("started machine", slog.String("machine", req.Name))

	return nil
}

// DeleteMachine stops a machine, removes its disks and undefines the domain.
// It returns the machine's UUID.
func (m *Manager) DeleteMachine(ctx context.Context, hypervisor runtime.HypervisorContext, req api.DeleteMachineRequest) (string, error) {
	domain, err := hypervisor.Conn.LookupDomainByName(req.Name)
	if err != nil {
		return "", fmt.Errorf("could not look up machine by name: %w", err)
	}
	m.logger.Debug("found machine", slog.String("machine", req.Name))

	domainXMLString, err := domain.GetXMLDesc(libvirt.DOMAIN_XML_INACTIVE)
	if err != nil {
		return "", fmt.Errorf("could not read domain XML: %w", err)
	}

	domainXML := libvirtxml.Domain{}
	if err := domainXML.Unmarshal(domainXMLString); err != nil {
		return "", fmt.Errorf("could not parse domain XML: %w", err)
	}

	machineUUID, err := domain.GetUUIDString()
	if err != nil {
		return "", fmt.Errorf("could not get machine UUID: %w", err)
	}

	for _, disk := range domainXML.Devices.Disks {
		if disk.Source == nil || disk.Source.File == nil {
			continue
		}
		m.logger.Debug("deleting disk",
			slog.String("machine", req.Name),
			slog.String("path", disk.Source.File.File),
		)

		if err := fileops.RemoveFile(ctx, hypervisor.Executor, disk.Source.File.File); err != nil {
			m.logger.Warn("failed to delete disk",
				slog.String("machine", req.Name),
				slog.String("path", disk.Source.File.File),
				slog.String("error", err.Error()),
			)
		}
	}

	if state, _, _ := domain.GetState(); state != libvirt.DOMAIN_SHUTOFF {
		if err = domain.Destroy(); err != nil {
			return "", fmt.Errorf("could not destroy machine: %w", err)
		}
		m.logger.Debug("destroyed running machine", slog.String("machine", req.Name))
	}

	if err = domain.Undefine(); err != nil {
		return "", fmt.Errorf("could not undefine machine: %w", err)
	}
	m.logger.Info("undefined machine from libvirt", slog.String("machine", req.Name))

	return machineUUID, nil
}

// MachineExists reports whether a domain with the given name is defined.
func (m *Manager) MachineExists(hypervisor runtime.HypervisorContext, name string) (bool, error) {
	_, err := hypervisor.Conn.LookupDomainByName(name)
	if err != nil {
		if libvirtErr, ok := err.(libvirt.Error); ok && libvirtErr.Code == libvirt.ERR_NO_DOMAIN {
			return false, nil
		}
		return false, fmt.Errorf("error checking if machine exists: %w", err)
	}
	return true, nil
}

// MachineInfo queries the hypervisor's view of a machine.
func (m *Manager) MachineInfo(hypervisor runtime.HypervisorContext, name string) (api.MachineInfo, error) {
	domain, err := hypervisor.Conn.LookupDomainByName(name)
	if err != nil {
		return api.MachineInfo{}, fmt.Errorf("could not look up machine by name: %w", err)
	}

	machineUUID, err := domain.GetUUIDString()
	if err != nil {
		return api.MachineInfo{}, fmt.Errorf("could not get machine UUID: %w", err)
	}

	state, _, err := domain.GetState()
	if err != nil {
		return api.MachineInfo{}, fmt.Errorf("could not get machine state: %w", err)
	}

	info, err := domain.GetInfo()
	if err != nil {
		return api.MachineInfo{}, fmt.Errorf("could not get machine info: %w", err)
	}

	autostart, _ := domain.GetAutostart()
	persistent, _ := domain.IsPersistent()

	return api.MachineInfo{
		Name:       name,
		UUID:       machineUUID,
		State:      stateName(state),
		VCPUCount:  uint(info.NrVirtCpu),
		MemoryMB:   uint(info.Memory >> 10),
		AutoStart:  autostart,
		Persistent: persistent,
	}, nil
}

func stateName(state libvirt.DomainState) string {
	switch state {
	case libvirt.DOMAIN_RUNNING:
		return "running"
	case libvirt.DOMAIN_PAUSED:
		return "paused"
	case libvirt.DOMAIN_SHUTDOWN:
		return "shutting down"
	case libvirt.DOMAIN_SHUTOFF:
		return "shut off"
	case libvirt.DOMAIN_CRASHED:
		return "crashed"
	case libvirt.DOMAIN_BLOCKED:
		return "blocked"
	case libvirt.DOMAIN_PMSUSPENDED:
		return "suspended"
	default:
		return "unknown"
	}
}
