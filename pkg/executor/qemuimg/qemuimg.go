// Package qemuimg wraps the qemu-img binary for machine disk creation.
package qemuimg

import (
	"context"
	"fmt"

	"github.com/ironbell/pressgang/pkg/executor"
)

// BackingImageOptions describes a copy-on-write disk backed by a base image.
type BackingImageOptions struct {
	BackingFile       string
	BackingFileFormat string
	OutputPath        string
	SizeGB            int64
}

// CreateBackingImage creates a qcow2 disk layered over a base image.
func CreateBackingImage(ctx context.Context, exec executor.Executor, opts BackingImageOptions) error {
	args := []string{
		"create",
		"-b", opts.BackingFile,
		"-F", opts.BackingFileFormat,
		"-f", "qcow2",
		opts.OutputPath,
		fmt.Sprintf("%dG", opts.SizeGB),
	}

	result, err := executor.RunAndCapture(ctx, exec, "qemu-img", args...)
	if err != nil {
		return fmt.Errorf("qemu-img create failed: %w\nstdout: %s\nstderr: %s",
			err, result.Stdout, result.Stderr)
	}

	return nil
}
