package dockercli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// fakeExecutor replays canned responses and records the command lines it saw.
type fakeExecutor struct {
	calls    []string
	exitCode int
	stdout   string
	stderr   string
}

func (f *fakeExecutor) Name() string { return "fake" }

func (f *fakeExecutor) Execute(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (int, error) {
	f.calls = append(f.calls, command+" "+strings.Join(args, " "))
	fmt.Fprint(stdout, f.stdout)
	fmt.Fprint(stderr, f.stderr)
	if f.exitCode != 0 {
		return f.exitCode, errors.New("exit status 1")
	}
	return 0, nil
}

func TestNetworkExists(t *testing.T) {
	fake := &fakeExecutor{}
	client := New(fake, "docker")

	exists, err := client.NetworkExists(context.Background(), "blog-net")
	if err != nil {
		t.Fatalf("network exists: %v", err)
	}
	if !exists {
		t.Fatal("zero exit should mean the network exists")
	}
	if got := fake.calls[0]; got != "docker network inspect blog-net" {
		t.Fatalf("unexpected command: %s", got)
	}

	fake = &fakeExecutor{exitCode: 1, stderr: "Error: No such network"}
	client = New(fake, "docker")
	exists, err = client.NetworkExists(context.Background(), "blog-net")
	if err != nil {
		t.Fatalf("network exists: %v", err)
	}
	if exists {
		t.Fatal("nonzero exit should mean the network is absent")
	}
}

func TestRunContainerArgumentOrder(t *testing.T) {
	fake := &fakeExecutor{}
	client := New(fake, "docker")

	err := client.RunContainer(context.Background(), RunOptions{
		Name:    "mysql",
		Image:   "mysql:8.0",
		Network: "blog-net",
		Restart: "unless-stopped",
		Env:     []string{"MYSQL_DATABASE=wordpress"},
		Volumes: []string{"blog-db-data:/var/lib/mysql"},
		Binds:   []string{"/srv/conf:/etc/nginx/conf.d/default.conf:ro"},
		Ports:   []string{"443:443"},
		Labels:  []string{"pressgang.run=abc"},
	})
	if err != nil {
		t.Fatalf("run container: %v", err)
	}

	want := "docker run -d --name mysql --network blog-net --restart unless-stopped" +
		" -e MYSQL_DATABASE=wordpress" +
		" -v blog-db-data:/var/lib/mysql" +
		" -v /srv/conf:/etc/nginx/conf.d/default.conf:ro" +
		" -p 443:443" +
		" --label pressgang.run=abc" +
		" mysql:8.0"
	if fake.calls[0] != want {
		t.Fatalf("command line mismatch:\ngot  %s\nwant %s", fake.calls[0], want)
	}
}

func TestRemoveContainerToleratesAbsence(t *testing.T) {
	fake := &fakeExecutor{exitCode: 1, stderr: "Error response from daemon: No such container: mysql"}
	client := New(fake, "docker")

	if err := client.RemoveContainer(context.Background(), "mysql"); err != nil {
		t.Fatalf("removing an absent container should not fail: %v", err)
	}

	fake = &fakeExecutor{exitCode: 1, stderr: "permission denied"}
	client = New(fake, "docker")
	if err := client.RemoveContainer(context.Background(), "mysql"); err == nil {
		t.Fatal("a real failure should surface")
	}
}

func TestContainerLogsCombinesStreams(t *testing.T) {
	fake := &fakeExecutor{stdout: "starting\n", stderr: "ready for connections\n"}
	client := New(fake, "docker")

	logs, err := client.ContainerLogs(context.Background(), "mysql", 50)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(logs, "ready for connections") {
		t.Fatalf("stderr output was dropped: %q", logs)
	}
	if got := fake.calls[0]; got != "docker logs --tail 50 mysql" {
		t.Fatalf("unexpected command: %s", got)
	}
}

func TestInspectContainer(t *testing.T) {
	fake := &fakeExecutor{stdout: `[
		{
			"Name": "/nginx",
			"Config": {"Image": "nginx:stable"},
			"State": {"Status": "running", "Running": true},
			"NetworkSettings": {"Ports": {"443/tcp": [{"HostIp": "0.0.0.0", "HostPort": "443"}]}}
		}
	]`}
	client := New(fake, "docker")

	info, err := client.InspectContainer(context.Background(), "nginx")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info == nil {
		t.Fatal("expected container info")
	}
	if info.Name != "nginx" || info.Image != "nginx:stable" || !info.Running {
		t.Fatalf("unexpected info: %+v", info)
	}
	if len(info.Ports) != 1 || info.Ports[0] != "0.0.0.0:443->443/tcp" {
		t.Fatalf("unexpected ports: %v", info.Ports)
	}

	fake = &fakeExecutor{exitCode: 1, stderr: "Error: No such object: nginx"}
	client = New(fake, "docker")
	info, err = client.InspectContainer(context.Background(), "nginx")
	if err != nil {
		t.Fatalf("inspect absent: %v", err)
	}
	if info != nil {
		t.Fatalf("absent container should yield nil info, got %+v", info)
	}
}
