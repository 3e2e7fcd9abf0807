package node

import (
	"context"
	"fmt"
	"slices"

	"Micronet/pkg/commander"
)

// SharedNamespace runs commands inside the namespaces of an existing
// process. It owns no kernel resources.
type SharedNamespace struct {
	*commander.Commander
	pid   int
	intfs []string
}

func NewSharedNamespace(name string, pid int, env Env) *SharedNamespace {
	logger.Debug("Creating", "node", name, "pid", pid)

	c := commander.New(name, env.Runner)
	c.SetShell(env.Shell)
	c.SetPrefixFunc(func(cwd string) []string {
		return commander.NsenterPrefix(env.Nsenter, pid, cwd)
	})
	return &SharedNamespace{Commander: c, pid: pid}
}

func (s *SharedNamespace) String() string {
	return fmt.Sprintf("SharedNamespace(%s)", s.Name())
}

func (s *SharedNamespace) Pid() int {
	return s.pid
}

// RegisterInterface records ifname; registering a name twice is a no-op.
func (s *SharedNamespace) RegisterInterface(ifname string) {
	if !slices.Contains(s.intfs, ifname) {
		s.intfs = append(s.intfs, ifname)
	}
}

// Interfaces returns the registered interface names in registration order.
func (s *SharedNamespace) Interfaces() []string {
	return slices.Clone(s.intfs)
}

func (s *SharedNamespace) Close(_ context.Context) error {
	return nil
}
