// Package docker runs a local PlantUML server in a Docker container and
// renders through it. The container is started lazily on first render and
// reused afterwards.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/nstogner/diagrammer/pkg/render"
	"github.com/nstogner/diagrammer/pkg/render/plantumlserver"
)

const (
	DefaultImage  = "plantuml/plantuml-server:jetty"
	ContainerName = "diagrammer-plantuml"
	ServerPort    = "8080"
)

// Manager implements render.Compiler on top of a managed container.
type Manager struct {
	cli   *client.Client
	image string
	name  string

	mu       sync.Mutex
	hostPort string
	server   *plantumlserver.Client
}

// Ensure Manager implements render.Compiler
var _ render.Compiler = (*Manager)(nil)

// New creates a Manager using the Docker environment (DOCKER_HOST etc).
// An empty image selects DefaultImage.
func New(image string) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}
	return &Manager{
		cli:   cli,
		image: image,
		name:  ContainerName,
	}, nil
}

func (m *Manager) Close() error {
	return m.cli.Close()
}

// Render implements render.Compiler.
func (m *Manager) Render(ctx context.Context, source string) (string, error) {
	srv, err := m.ensureRunning(ctx)
	if err != nil {
		return "", err
	}
	return srv.Render(ctx, source)
}

// Stop removes the container.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.server = nil
	m.hostPort = ""
	m.mu.Unlock()
	return m.cli.ContainerRemove(ctx, m.name, types.ContainerRemoveOptions{
		Force: true,
	})
}

// ensureRunning starts the container if needed and returns a client for it.
func (m *Manager) ensureRunning(ctx context.Context) (*plantumlserver.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.cli.ContainerInspect(ctx, m.name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return m.createAndStart(ctx)
		}
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	if !c.State.Running {
		slog.Info("Starting stopped PlantUML container", "name", m.name)
		if err := m.cli.ContainerStart(ctx, m.name, types.ContainerStartOptions{}); err != nil {
			return nil, fmt.Errorf("failed to start container: %w", err)
		}
		if c, err = m.cli.ContainerInspect(ctx, m.name); err != nil {
			return nil, err
		}
	}

	port, err := m.getPort(c)
	if err != nil {
		return nil, err
	}
	// Already verified healthy on this port.
	if m.server != nil && port == m.hostPort {
		return m.server, nil
	}
	return m.connect(ctx, port)
}

func (m *Manager) createAndStart(ctx context.Context) (*plantumlserver.Client, error) {
	if err := m.ensureImage(ctx); err != nil {
		return nil, err
	}

	cfg := &container.Config{
		Image: m.image,
		ExposedPorts: nat.PortSet{
			nat.Port(ServerPort + "/tcp"): {},
		},
	}

	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			nat.Port(ServerPort + "/tcp"): []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: "0",
				},
			},
		},
	}

	resp, err := m.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, m.name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	slog.Info("Created PlantUML container", "id", resp.ID, "image", m.image)

	if err := m.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	c, err := m.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return nil, err
	}
	port, err := m.getPort(c)
	if err != nil {
		return nil, err
	}
	return m.connect(ctx, port)
}

// ensureImage pulls the image when it is not present locally.
func (m *Manager) ensureImage(ctx context.Context) error {
	_, _, err := m.cli.ImageInspectWithRaw(ctx, m.image)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", m.image, err)
	}

	slog.Info("Pulling PlantUML image", "image", m.image)
	rc, err := m.cli.ImagePull(ctx, m.image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", m.image, err)
	}
	defer rc.Close()
	// The pull completes when the progress stream ends.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", m.image, err)
	}
	return nil
}

func (m *Manager) connect(ctx context.Context, port string) (*plantumlserver.Client, error) {
	if err := m.waitForHealth(ctx, port); err != nil {
		return nil, err
	}
	m.hostPort = port
	m.server = plantumlserver.New(fmt.Sprintf("http://127.0.0.1:%s", port))
	return m.server, nil
}

func (m *Manager) getPort(c types.ContainerJSON) (string, error) {
	ports := c.NetworkSettings.Ports[nat.Port(ServerPort+"/tcp")]
	if len(ports) > 0 {
		return ports[0].HostPort, nil
	}
	return "", fmt.Errorf("container running but port not mapped")
}

func (m *Manager) waitForHealth(ctx context.Context, port string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/", port)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// Jetty takes a few seconds on a cold start.
	timeoutCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	for {
		select {
		case <-timeoutCtx.Done():
			return fmt.Errorf("timeout waiting for plantuml server health")
		case <-ticker.C:
			req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
		}
	}
}
