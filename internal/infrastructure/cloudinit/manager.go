package cloudinit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/runtime"
	"github.com/ironbell/pressgang/pkg/constants"
	"github.com/ironbell/pressgang/pkg/executor/mkisofs"
	"github.com/ironbell/pressgang/pkg/templator"
)

// Manager renders cloud-init data and packs it into a NoCloud seed ISO.
type Manager struct {
	engine *templator.Engine
	logger *slog.Logger
}

func NewManager(engine *templator.Engine, logger *slog.Logger) *Manager {
	return &Manager{
		engine: engine,
		logger: logger.With(slog.String("component", "cloudinit")),
	}
}

// CreateISO renders the cloud-init files for a machine and builds the ISO at
// the machine's configured path.
func (m *Manager) CreateISO(ctx context.Context, hypervisor runtime.HypervisorContext, req api.CreateMachineRequest, instanceID uuid.UUID) error {
	tempDir, err := os.MkdirTemp("", fmt.Sprintf("cloud-init-%s-", req.Name))
	if err != nil {
		return fmt.Errorf("failed to create temp dir for cloud-init: %w", err)
	}
	defer os.RemoveAll(tempDir)

	userDataPath := filepath.Join(tempDir, "user-data")
	if err := m.renderUserData(userDataPath, req); err != nil {
		return fmt.Errorf("failed to render user-data: %w", err)
	}
	m.logger.Debug("rendered user-data", slog.String("machine", req.Name))

	isoFiles := []string{userDataPath}

	if m.engine.HasTemplate(constants.TemplateCloudInitMetaData) {
		metaDataPath := filepath.Join(tempDir, "meta-data")
		if err := m.renderMetaData(metaDataPath, req, instanceID); err != nil {
			return fmt.Errorf("failed to render meta-data: %w", err)
		}
		isoFiles = append(isoFiles, metaDataPath)
		m.logger.Debug("rendered meta-data", slog.String("machine", req.Name))
	}

	if m.engine.HasTemplate(constants.TemplateCloudInitNetworkConfig) {
		networkConfigPath := filepath.Join(tempDir, "network-config")
		if err := m.renderNetworkConfig(networkConfigPath, req); err != nil {
			return fmt.Errorf("failed to render network-config: %w", err)
		}
		isoFiles = append(isoFiles, networkConfigPath)
		m.logger.Debug("rendered network-config", slog.String("machine", req.Name))
	}

	err = mkisofs.CreateISO(ctx, hypervisor.Executor, mkisofs.ISOOptions{
		OutputPath: req.CloudInitISOPath,
		VolumeID:   "cidata",
		Files:      isoFiles,
	})
	if err != nil {
		return err
	}

	m.logger.Info("created cloud-init ISO",
		slog.String("machine", req.Name),
		slog.String("path", req.CloudInitISOPath),
		slog.Int("files", len(isoFiles)),
	)

	return nil
}

func (m *Manager) renderUserData(path string, req api.CreateMachineRequest) error {
	vars := UserDataTemplateVars{
		Hostname: req.Name,
		Users:    req.Users,
		Packages: req.Packages,
		Runcmds:  req.Runcmds,
	}

	return m.engine.RenderToFile(constants.TemplateCloudInitUserData, path, vars)
}

func (m *Manager) renderMetaData(path string, req api.CreateMachineRequest, instanceID uuid.UUID) error {
	vars := MetaDataTemplateVars{
		InstanceID: instanceID.String(),
		Hostname:   req.Name,
	}

	return m.engine.RenderToFile(constants.TemplateCloudInitMetaData, path, vars)
}

func (m *Manager) renderNetworkConfig(path string, req api.CreateMachineRequest) error {
	vars := NetworkConfigTemplateVars{
		Hostname: req.Name,
	}

	return m.engine.RenderToFile(constants.TemplateCloudInitNetworkConfig, path, vars)
}
