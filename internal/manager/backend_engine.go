package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	labelProject   = "rasad.project"
	labelManagedBy = "rasad.managed-by"
)

// engineAPI is the subset of the Engine API client used by engineBackend.
type engineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// engineBackend talks to the container engine API directly instead of
// shelling out to the CLI. Commands are equivalent to containerBackend's.
type engineBackend struct {
	cli   engineAPI
	image string
}

func newEngineBackend(img string) (*engineBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &engineBackend{cli: cli, image: img}, nil
}

func (b *engineBackend) Mode() Mode { return ModeDocker }

func (b *engineBackend) Command(op Op, project, projectDir string, port int) (Invocation, error) {
	inv := Invocation{Path: "docker", Port: port, Image: b.image, Mount: projectDir}
	switch op {
	case OpTrain:
		inv.Args = trainContainerArgs(b.image, projectDir)
		inv.Cmd = []string{"train"}
	case OpServe:
		inv.Args = serveContainerArgs(b.image, project, projectDir, port)
		inv.Name = containerName(project)
		inv.Cmd = serveArgs(containerPort)
	default:
		return Invocation{}, fmt.Errorf("unknown op %q", op)
	}
	return inv, nil
}

// ensureImage pulls the image if not present locally.
func (b *engineBackend) ensureImage(ctx context.Context, ref string) error {
	if _, _, err := b.cli.ImageInspectWithRaw(ctx, ref); err == nil {
		return nil
	}
	rc, err := b.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return ErrExecution("pull "+ref, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return ErrExecution("pull "+ref, err)
	}
	return nil
}

func (b *engineBackend) containerConfig(inv Invocation) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:      inv.Image,
		Cmd:        inv.Cmd,
		WorkingDir: containerWorkdir,
		Labels: map[string]string{
			labelManagedBy: "rasad",
			labelProject:   filepath.Base(inv.Mount),
		},
	}
	host := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: inv.Mount,
			Target: containerWorkdir,
		}},
	}
	if inv.Port > 0 {
		p := nat.Port(strconv.Itoa(containerPort) + "/tcp")
		cfg.ExposedPorts = nat.PortSet{p: struct{}{}}
		host.PortBindings = nat.PortMap{p: []nat.PortBinding{{HostPort: strconv.Itoa(inv.Port)}}}
	}
	return cfg, host
}

// Run creates the container, streams its demultiplexed output into out, and
// removes it once it exits.
func (b *engineBackend) Run(ctx context.Context, inv Invocation, out io.Writer) (int, error) {
	if err := b.ensureImage(ctx, inv.Image); err != nil {
		return -1, err
	}
	cfg, host := b.containerConfig(inv)
	resp, err := b.cli.ContainerCreate(ctx, cfg, host, nil, nil, "")
	if err != nil {
		return -1, ErrExecution("create container", err)
	}
	defer func() {
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		_ = b.cli.ContainerRemove(rmCtx, resp.ID, container.RemoveOptions{Force: true})
	}()
	if err := b.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return -1, ErrExecution("start container", err)
	}
	logs, err := b.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: true})
	if err != nil {
		return -1, ErrExecution("container logs", err)
	}
	_, copyErr := stdcopy.StdCopy(out, out, logs)
	_ = logs.Close()

	waitCh, errCh := b.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case w := <-waitCh:
		if w.Error != nil && w.Error.Message != "" {
			return int(w.StatusCode), ErrExecution("wait container", errors.New(w.Error.Message))
		}
		return int(w.StatusCode), nil
	case err := <-errCh:
		if copyErr != nil {
			err = errors.Join(err, copyErr)
		}
		return -1, ErrExecution("wait container", err)
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (b *engineBackend) Launch(ctx context.Context, inv Invocation, _ string) (Handle, error) {
	if err := b.ensureImage(ctx, inv.Image); err != nil {
		return Handle{}, err
	}
	cfg, host := b.containerConfig(inv)
	resp, err := b.cli.ContainerCreate(ctx, cfg, host, nil, nil, inv.Name)
	if err != nil {
		return Handle{}, ErrExecution("create container", err)
	}
	if err := b.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = b.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return Handle{}, ErrExecution("start container", err)
	}
	return Handle{ContainerID: resp.ID}, nil
}

func (b *engineBackend) Terminate(ctx context.Context, h Handle) error {
	if h.ContainerID == "" {
		return nil
	}
	timeout := 10
	return errors.Join(
		b.cli.ContainerStop(ctx, h.ContainerID, container.StopOptions{Timeout: &timeout}),
		b.cli.ContainerRemove(ctx, h.ContainerID, container.RemoveOptions{}),
	)
}

func (b *engineBackend) Check(ctx context.Context) (string, error) {
	ping, err := b.cli.Ping(ctx)
	if err != nil {
		return "", ErrExecution("docker engine unreachable", err)
	}
	return "docker engine api " + ping.APIVersion, nil
}
