package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// containerBackend drives the docker CLI. Argument construction is kept in
// pure functions so it can be tested without a daemon.
type containerBackend struct {
	bin   string
	image string
}

func newContainerBackend(bin, image string) *containerBackend {
	return &containerBackend{bin: bin, image: image}
}

func (b *containerBackend) Mode() Mode { return ModeDocker }

// containerName is the deterministic name of a project's inference container.
func containerName(project string) string { return "rasa-" + project }

func trainContainerArgs(image, projectDir string) []string {
	return []string{
		"run", "--rm",
		"-v", projectDir + ":" + containerWorkdir,
		"-w", containerWorkdir,
		image, "train",
	}
}

func serveContainerArgs(image, project, projectDir string, port int) []string {
	args := []string{
		"run", "-d",
		"--name", containerName(project),
		"-p", fmt.Sprintf("%d:%d", port, containerPort),
		"-v", projectDir + ":" + containerWorkdir,
		"-w", containerWorkdir,
		image,
	}
	return append(args, serveArgs(containerPort)...)
}

func (b *containerBackend) Command(op Op, project, projectDir string, port int) (Invocation, error) {
	inv := Invocation{Path: b.bin, Port: port, Image: b.image, Mount: projectDir}
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

func (b *containerBackend) Run(ctx context.Context, inv Invocation, out io.Writer) (int, error) {
	return runCommand(ctx, inv, out)
}

// Launch runs the detached container; stdout carries the container id.
func (b *containerBackend) Launch(ctx context.Context, inv Invocation, _ string) (Handle, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Handle{}, ErrExecution("docker run failed", errors.New(msg))
	}
	id := strings.TrimSpace(stdout.String())
	if id == "" {
		return Handle{}, ErrExecution("docker run returned no container id", nil)
	}
	return Handle{ContainerID: id}, nil
}

// Terminate issues stop then remove; both run even if the first fails.
func (b *containerBackend) Terminate(ctx context.Context, h Handle) error {
	if h.ContainerID == "" {
		return nil
	}
	return errors.Join(
		b.docker(ctx, "stop", h.ContainerID),
		b.docker(ctx, "rm", h.ContainerID),
	)
}

func (b *containerBackend) docker(ctx context.Context, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, b.bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return ErrExecution(fmt.Sprintf("docker %s: %s", args[0], strings.TrimSpace(stderr.String())), err)
	}
	return nil
}

func (b *containerBackend) Check(context.Context) (string, error) {
	p, err := exec.LookPath(b.bin)
	if err != nil {
		return "", ErrNotFound("docker executable", b.bin)
	}
	return p, nil
}
