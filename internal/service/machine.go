package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/infrastructure/cloudinit"
	"github.com/ironbell/pressgang/internal/infrastructure/disk"
	"github.com/ironbell/pressgang/internal/infrastructure/libvirt"
	"github.com/ironbell/pressgang/internal/runtime"
	"github.com/ironbell/pressgang/pkg/executor"
	pkglibvirt "github.com/ironbell/pressgang/pkg/libvirt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// engineInstall is the Vagrant-provisioner analog: a machine becomes a
// usable stack host once the container engine is on it.
const engineInstall = "curl -fsSL https://get.docker.com | sh"

// MachineService provides transport-agnostic development machine operations.
type MachineService struct {
	diskManager      *disk.Manager
	cloudinitManager *cloudinit.Manager
	libvirtManager   *libvirt.Manager
	connManager      *pkglibvirt.ConnectionManager
	logger           *slog.Logger

	sshWaitTimeout  time.Duration
	sshWaitInterval time.Duration
}

// NewMachineService creates a new MachineService. The wait settings bound
// how long Provision waits for SSH to come up.
func NewMachineService(
	diskManager *disk.Manager,
	cloudinitManager *cloudinit.Manager,
	libvirtManager *libvirt.Manager,
	connManager *pkglibvirt.ConnectionManager,
	sshWaitTimeout, sshWaitInterval time.Duration,
	logger *slog.Logger,
) *MachineService {
	return &MachineService{
		diskManager:      diskManager,
		cloudinitManager: cloudinitManager,
		libvirtManager:   libvirtManager,
		connManager:      connManager,
		sshWaitTimeout:   sshWaitTimeout,
		sshWaitInterval:  sshWaitInterval,
		logger:           logger.With(slog.String("service", "machine")),
	}
}

// Create provisions a machine: backing disk, cloud-init seed ISO, then the
// libvirt domain.
func (s *MachineService) Create(ctx context.Context, p CreateMachineParams) error {
	tracer := otel.Tracer("pressgang/service")
	ctx, span := tracer.Start(ctx, "MachineCreate")
	defer span.End()

	span.SetAttributes(attribute.String("machine.name", p.Name))

	conn, exec, unlock, err := s.connManager.GetHypervisor()
	if err != nil {
		return fmt.Errorf("failed to get hypervisor connection: %w", err)
	}
	defer unlock()

	hypervisor := runtime.HypervisorContext{
		URI:      s.connManager.GetURI(),
		Conn:     conn,
		Executor: exec,
	}

	exists, err := s.libvirtManager.MachineExists(hypervisor, p.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("machine %s already exists", p.Name)
	}

	machineUUID := uuid.New()
	req := s.toCreateMachineRequest(p)

	s.logger.Info("creating machine disk",
		slog.String("machine", p.Name),
		slog.String("uuid", machineUUID.String()),
		slog.String("path", p.DiskPath),
		slog.Int64("size_gb", p.DiskSizeGB),
	)

	if err := s.diskManager.CreateDisk(ctx, hypervisor, req); err != nil {
		return fmt.Errorf("failed to create disk for %s: %w", p.Name, err)
	}

	if p.CloudInitISOPath != "" {
		if err := s.cloudinitManager.CreateISO(ctx, hypervisor, req, machineUUID); err != nil {
			return fmt.Errorf("failed to create cloud-init ISO for %s: %w", p.Name, err)
		}
	}

	if err := s.libvirtManager.CreateMachine(ctx, hypervisor, req, machineUUID); err != nil {
		return fmt.Errorf("failed to create machine %s: %w", p.Name, err)
	}

	s.logger.Info("machine created",
		slog.String("machine", p.Name),
		slog.String("uuid", machineUUID.String()),
	)
	return nil
}

// Delete destroys a machine and removes its disks and seed ISO.
func (s *MachineService) Delete(ctx context.Context, p DeleteMachineParams) error {
	tracer := otel.Tracer("pressgang/service")
	ctx, span := tracer.Start(ctx, "MachineDelete")
	defer span.End()

	conn, exec, unlock, err := s.connManager.GetHypervisor()
	if err != nil {
		return fmt.Errorf("failed to get hypervisor connection: %w", err)
	}
	defer unlock()

	hypervisor := runtime.HypervisorContext{
		URI:      s.connManager.GetURI(),
		Conn:     conn,
		Executor: exec,
	}

	machineUUID, err := s.libvirtManager.DeleteMachine(ctx, hypervisor, api.DeleteMachineRequest{Name: p.Name})
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", p.Name, err)
	}

	s.logger.Info("machine deleted",
		slog.String("machine", p.Name),
		slog.String("uuid", machineUUID),
	)
	return nil
}

// Provision waits for the machine to accept SSH and installs the container
// engine on it.
func (s *MachineService) Provision(ctx context.Context, p ProvisionMachineParams) error {
	tracer := otel.Tracer("pressgang/service")
	ctx, span := tracer.Start(ctx, "MachineProvision")
	defer span.End()

	span.SetAttributes(attribute.String("machine.name", p.Name))

	sshConfig := executor.SSHConfig{
		Host:    p.SSH.Host,
		Port:    p.SSH.Port,
		User:    p.SSH.User,
		KeyPath: p.SSH.KeyPath,
	}

	exec, err := s.waitForSSH(ctx, sshConfig)
	if err != nil {
		return fmt.Errorf("machine %s never accepted SSH: %w", p.Name, err)
	}
	defer exec.Close()

	s.logger.Info("installing container engine",
		slog.String("machine", p.Name),
		slog.String("host", p.SSH.Host),
	)

	// A single command string sidesteps remote shell quoting.
	if _, err := exec.Execute(ctx, os.Stdout, os.Stderr, engineInstall); err != nil {
		return fmt.Errorf("engine install on %s failed: %w", p.Name, err)
	}

	s.logger.Info("machine provisioned", slog.String("machine", p.Name))
	return nil
}

// Info queries the hypervisor's view of a machine.
func (s *MachineService) Info(ctx context.Context, p MachineInfoParams) (api.MachineInfo, error) {
	conn, exec, unlock, err := s.connManager.GetHypervisor()
	if err != nil {
		return api.MachineInfo{}, fmt.Errorf("failed to get hypervisor connection: %w", err)
	}
	defer unlock()

	hypervisor := runtime.HypervisorContext{
		URI:      s.connManager.GetURI(),
		Conn:     conn,
		Executor: exec,
	}

	return s.libvirtManager.MachineInfo(hypervisor, p.Name)
}

// waitForSSH dials the machine until a connection succeeds or the deadline
// passes.
func (s *MachineService) waitForSSH(ctx context.Context, cfg executor.SSHConfig) (*executor.SSH, error) {
	ctx, cancel := context.WithTimeout(ctx, s.sshWaitTimeout)
	defer cancel()

	var lastErr error
	attempt := 0

	for {
		exec, err := executor.NewSSH(cfg, s.logger)
		if err == nil {
			s.logger.Debug("SSH is up", slog.Int("attempt", attempt))
			return exec, nil
		}
		lastErr = err
		attempt++

		s.logger.Debug("SSH not ready yet",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up after %d attempts: %w (last error: %v)",
				attempt, ctx.Err(), lastErr)
		case <-time.After(s.sshWaitInterval):
		}
	}
}

func (s *MachineService) toCreateMachineRequest(p CreateMachineParams) api.CreateMachineRequest {
	users := make([]api.UserConfig, len(p.Users))
	for i, u := range p.Users {
		users[i] = api.UserConfig{
			Username:          u.Username,
			Password:          u.Password,
			SSHAuthorizedKeys: u.SSHAuthorizedKeys,
		}
	}

	return api.CreateMachineRequest{
		Name:                   p.Name,
		VCPU:                   p.VCPU,
		MemoryMB:               p.MemoryMB,
		DiskPath:               p.DiskPath,
		DiskSizeGB:             p.DiskSizeGB,
		BaseImagePath:          p.BaseImagePath,
		BridgeNetworkInterface: p.BridgeNetworkInterface,
		CloudInitISOPath:       p.CloudInitISOPath,
		Users:                  users,
		Packages:               p.Packages,
		Runcmds:                p.Runcmds,
	}
}
