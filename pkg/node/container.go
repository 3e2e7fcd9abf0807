package node

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"Micronet/pkg/commander"
)

const DefaultImage = "frr:v4"

// ContainerManager manages the lifecycle of container-backed hosts.
type ContainerManager struct {
	dClient *client.Client
}

func NewContainerManager() (*ContainerManager, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &ContainerManager{dClient: dClient}, nil
}

// Container is a host whose namespaces belong to a running container. The
// container has networking disabled; all its interfaces come from links.
type Container struct {
	*SharedNamespace
	id     string
	cm     *ContainerManager
	closed bool
}

// AddNode creates and starts a privileged container for name, then attaches
// to the namespaces of its init process.
func (cm *ContainerManager) AddNode(ctx context.Context, name, image string, env Env) (*Container, error) {
	if image == "" {
		image = DefaultImage
	}

	sysctls := map[string]string{
		"net.ipv4.ip_forward":          "1",
		"net.ipv6.conf.all.forwarding": "1",
	}

	resp, err := cm.dClient.ContainerCreate(ctx, &container.Config{
		Image:           image,
		Hostname:        name,
		NetworkDisabled: true,
		User:            "root",
	}, &container.HostConfig{
		Privileged: true,
		Sysctls:    sysctls,
	}, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s: %w", name, err)
	}

	c := &Container{id: resp.ID, cm: cm}
	if err := cm.dClient.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		cm.remove(ctx, name, resp.ID)
		return nil, fmt.Errorf("failed to start container %s: %w", name, err)
	}

	res, err := cm.dClient.ContainerInspect(ctx, resp.ID)
	if err != nil {
		cm.remove(ctx, name, resp.ID)
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	logger.Debug("container started", "node", name, "id", resp.ID, "pid", res.State.Pid)

	c.SharedNamespace = NewSharedNamespace(name, res.State.Pid, env)
	if _, err := c.Cmd(ctx, commander.Argv{"ip", "link", "set", "lo", "up"}); err != nil {
		cm.remove(ctx, name, resp.ID)
		return nil, fmt.Errorf("container %s: %w", name, err)
	}
	return c, nil
}

func (cm *ContainerManager) remove(ctx context.Context, name, id string) {
	if err := cm.dClient.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		logger.Warn("failed to remove container", "node", name, "id", id, "err", err)
	}
}

func (c *Container) String() string {
	return fmt.Sprintf("Container(%s)", c.Name())
}

// Close force-removes the container; its namespaces go with it.
func (c *Container) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.cm.dClient.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", c.Name(), err)
	}
	logger.Debug("Deleted", "node", c.Name())
	return nil
}

// Close releases the docker client.
func (cm *ContainerManager) Close() error {
	return cm.dClient.Close()
}
