package disk

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/ironbell/pressgang/internal/api"
	"github.com/ironbell/pressgang/internal/runtime"
	"github.com/ironbell/pressgang/pkg/executor/qemuimg"
)

// Manager creates machine disks.
type Manager struct {
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger.With(slog.String("component", "disk")),
	}
}

// CreateDisk creates a qcow2 disk backed by the machine's base image.
func (m *Manager) CreateDisk(ctx context.Context, hypervisor runtime.HypervisorContext, req api.CreateMachineRequest) error {
	m.logger.Debug("creating qcow2 disk",
		slog.String("path", req.DiskPath),
		slog.String("base", req.BaseImagePath),
		slog.Int64("size_gb", req.DiskSizeGB),
	)

	backingFileFormat := strings.ToLower(path.Ext(req.BaseImagePath))
	switch backingFileFormat {
	case ".qcow2":
		backingFileFormat = "qcow2"
	default:
		return fmt.Errorf("unsupported backing file format: %s", backingFileFormat)
	}

	err := qemuimg.CreateBackingImage(ctx, hypervisor.Executor, qemuimg.BackingImageOptions{
		BackingFile:       req.BaseImagePath,
		BackingFileFormat: backingFileFormat,
		OutputPath:        req.DiskPath,
		SizeGB:            req.DiskSizeGB,
	})
	if err != nil {
		return err
	}

	m.logger.Info("created qcow2 disk",
		slog.String("path", req.DiskPath),
		slog.Int64("size_gb", req.DiskSizeGB),
	)

	return nil
}
