// Package dockercli drives the docker binary through an executor. It wraps
// only the subcommands pressgang needs: resource creation, container
// lifecycle, logs and inspection.
package dockercli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ironbell/pressgang/pkg/executor"
)

// DefaultBinary is used when no docker binary path is configured.
const DefaultBinary = "docker"

// Client invokes docker subcommands through an executor.
type Client struct {
	bin  string
	exec executor.Executor
}

func New(exec executor.Executor, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{bin: binary, exec: exec}
}

func (c *Client) run(ctx context.Context, args ...string) (*executor.Result, error) {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, args...)
	if err != nil {
		return result, fmt.Errorf("%s %s failed: %w\nstderr: %s",
			c.bin, strings.Join(args, " "), err, result.Stderr)
	}
	return result, nil
}

// NetworkExists reports whether a network with the given name is known to
// the daemon.
func (c *Client) NetworkExists(ctx context.Context, name string) (bool, error) {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, "network", "inspect", name)
	if err != nil {
		if result.ExitCode > 0 {
			return false, nil
		}
		return false, fmt.Errorf("network inspect %s failed: %w", name, err)
	}
	return true, nil
}

// CreateNetwork creates a bridge network.
func (c *Client) CreateNetwork(ctx context.Context, name string) error {
	_, err := c.run(ctx, "network", "create", "--driver", "bridge", name)
	return err
}

// RemoveNetwork removes a network, tolerating its absence.
func (c *Client) RemoveNetwork(ctx context.Context, name string) error {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, "network", "rm", name)
	if err != nil && !isNotFound(result) {
		return fmt.Errorf("network rm %s failed: %w\nstderr: %s", name, err, result.Stderr)
	}
	return nil
}

// VolumeExists reports whether a named volume exists.
func (c *Client) VolumeExists(ctx context.Context, name string) (bool, error) {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, "volume", "inspect", name)
	if err != nil {
		if result.ExitCode > 0 {
			return false, nil
		}
		return false, fmt.Errorf("volume inspect %s failed: %w", name, err)
	}
	return true, nil
}

// CreateVolume creates a named volume.
func (c *Client) CreateVolume(ctx context.Context, name string) error {
	_, err := c.run(ctx, "volume", "create", name)
	return err
}

// RemoveVolume removes a named volume, tolerating its absence.
func (c *Client) RemoveVolume(ctx context.Context, name string) error {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, "volume", "rm", name)
	if err != nil && !isNotFound(result) {
		return fmt.Errorf("volume rm %s failed: %w\nstderr: %s", name, err, result.Stderr)
	}
	return nil
}

// RunOptions describes a detached container run.
type RunOptions struct {
	Name    string
	Image   string
	Network string
	Env     []string // KEY=value
	Volumes []string // volume:/container/path
	Binds   []string // /host/path:/container/path[:ro]
	Ports   []string // host:container
	Labels  []string // key=value
	Restart string
}

// RunContainer starts a detached container from the given options.
func (c *Client) RunContainer(ctx context.Context, opts RunOptions) error {
	args := []string{"run", "-d", "--name", opts.Name}
	if opts.Network != "" {
		args = append(args, "--network", opts.Network)
	}
	if opts.Restart != "" {
		args = append(args, "--restart", opts.Restart)
	}
	for _, env := range opts.Env {
		args = append(args, "-e", env)
	}
	for _, vol := range opts.Volumes {
		args = append(args, "-v", vol)
	}
	for _, bind := range opts.Binds {
		args = append(args, "-v", bind)
	}
	for _, port := range opts.Ports {
		args = append(args, "-p", port)
	}
	for _, label := range opts.Labels {
		args = append(args, "--label", label)
	}
	args = append(args, opts.Image)

	_, err := c.run(ctx, args...)
	return err
}

// RemoveContainer force-removes a container, tolerating its absence.
func (c *Client) RemoveContainer(ctx context.Context, name string) error {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, "rm", "-f", name)
	if err != nil && !isNotFound(result) {
		return fmt.Errorf("rm -f %s failed: %w\nstderr: %s", name, err, result.Stderr)
	}
	return nil
}

// ContainerLogs returns the last tail lines of a container's combined
// output. Images log readiness markers to either stream, so stdout and
// stderr are searched together.
func (c *Client) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	args := []string{"logs"}
	if tail > 0 {
		args = append(args, "--tail", strconv.Itoa(tail))
	}
	args = append(args, name)

	result, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return result.Stdout + result.Stderr, nil
}

// ContainerInfo is the subset of `docker inspect` pressgang reports.
type ContainerInfo struct {
	Name    string
	Image   string
	State   string
	Running bool
	Ports   []string
}

// InspectContainer returns state and port information for a container, or a
// nil info when the container does not exist.
func (c *Client) InspectContainer(ctx context.Context, name string) (*ContainerInfo, error) {
	result, err := executor.RunAndCapture(ctx, c.exec, c.bin, "inspect", name)
	if err != nil {
		if result.ExitCode > 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect %s failed: %w", name, err)
	}

	var raw []struct {
		Name   string `json:"Name"`
		Config struct {
			Image string `json:"Image"`
		} `json:"Config"`
		State struct {
			Status  string `json:"Status"`
			Running bool   `json:"Running"`
		} `json:"State"`
		NetworkSettings struct {
			Ports map[string][]struct {
				HostIP   string `json:"HostIp"`
				HostPort string `json:"HostPort"`
			} `json:"Ports"`
		} `json:"NetworkSettings"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &raw); err != nil {
		return nil, fmt.Errorf("inspect %s returned unparseable JSON: %w", name, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	entry := raw[0]
	info := &ContainerInfo{
		Name:    strings.TrimPrefix(entry.Name, "/"),
		Image:   entry.Config.Image,
		State:   entry.State.Status,
		Running: entry.State.Running,
	}
	for containerPort, bindings := range entry.NetworkSettings.Ports {
		for _, binding := range bindings {
			info.Ports = append(info.Ports, fmt.Sprintf("%s:%s->%s", binding.HostIP, binding.HostPort, containerPort))
		}
	}
	return info, nil
}

func isNotFound(result *executor.Result) bool {
	if result == nil {
		return false
	}
	stderr := strings.ToLower(result.Stderr)
	return strings.Contains(stderr, "no such") || strings.Contains(stderr, "not found")
}
