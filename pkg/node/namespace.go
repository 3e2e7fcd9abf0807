package node

import (
	"context"
	"fmt"
	"strings"

	"Micronet/pkg/commander"
)

// NamespaceOptions selects the namespaces unshared for a node.
type NamespaceOptions struct {
	Net    bool
	Mount  bool
	UTS    bool
	Cgroup bool
	IPC    bool
	// PID also mounts a fresh /proc.
	PID  bool
	Time bool
	// User also keeps capabilities.
	User bool

	// SetHostname sets the UTS hostname to the node name; needs UTS.
	SetHostname bool
	// PrivateMounts are "[/external/path:]/internal/path" entries. Without an
	// external path a tmpfs is mounted on the internal path.
	PrivateMounts []string
}

// DefaultNamespaceOptions unshares network, mount and UTS and sets the
// hostname.
func DefaultNamespaceOptions() NamespaceOptions {
	return NamespaceOptions{Net: true, Mount: true, UTS: true, SetHostname: true}
}

// unshareArgs builds the placeholder command line.
func (o NamespaceOptions) unshareArgs(unshare, placeholder string) []string {
	args := []string{unshare}
	flags := "-"
	if o.Cgroup {
		flags += "C"
	}
	if o.IPC {
		flags += "i"
	}
	if o.Mount {
		flags += "m"
	}
	if o.Net {
		flags += "n"
	}
	if o.PID {
		flags += "p"
		args = append(args, "--mount-proc")
	}
	if o.Time {
		flags += "T"
	}
	if o.User {
		flags += "U"
		args = append(args, "--keep-caps")
	}
	if o.UTS {
		args = append(args, "--uts")
	}
	if len(flags) > 1 {
		args = append(args, flags)
	}
	return append(args, placeholder)
}

// Namespace is a node with its own namespaces, anchored by a placeholder
// process that holds them alive while its stdin stays open.
type Namespace struct {
	*SharedNamespace
	proc   commander.Process
	env    Env
	closed bool
}

// NewNamespace spawns the placeholder and prepares the namespace. It either
// returns a fully set up node or stops the placeholder and fails with the
// first failing step.
func NewNamespace(ctx context.Context, name string, opts NamespaceOptions, env Env) (*Namespace, error) {
	logger.Debug("Creating namespace", "node", name)

	argv := opts.unshareArgs(env.Unshare, env.Placeholder)
	logger.Debug("Creating namespace process", "node", name, "cmd", commander.Join(argv))
	proc, err := env.Runner.Start(argv)
	if err != nil {
		return nil, fmt.Errorf("namespace %s: %w", name, err)
	}

	n := &Namespace{
		SharedNamespace: NewSharedNamespace(name, proc.Pid(), env),
		proc:            proc,
		env:             env,
	}
	if err := n.setup(ctx, opts); err != nil {
		if stopErr := n.Close(ctx); stopErr != nil {
			logger.Warn("failed to stop placeholder", "node", name, "err", stopErr)
		}
		return nil, fmt.Errorf("namespace %s: %w", name, err)
	}
	return n, nil
}

func (n *Namespace) setup(ctx context.Context, opts NamespaceOptions) error {
	// Keep our mounts from propagating to the root namespace.
	if _, err := n.Cmd(ctx, commander.Argv{"mount", "--make-rprivate", "/"}); err != nil {
		return err
	}
	if _, err := n.Cmd(ctx, commander.Argv{"mount", "-t", "sysfs", "sysfs", "/sys"}); err != nil {
		return err
	}

	if opts.UTS && opts.SetHostname {
		if err := n.setHostname(ctx); err != nil {
			return err
		}
	}

	for _, m := range opts.PrivateMounts {
		if err := n.mountPrivate(ctx, m); err != nil {
			return err
		}
	}

	_, err := n.Cmd(ctx, commander.Argv{"ip", "link", "set", "lo", "up"})
	return err
}

func (n *Namespace) setHostname(ctx context.Context) error {
	root := commander.New("root", n.env.Runner)
	before, err := root.Cmd(ctx, commander.Argv{"hostname"})
	if err != nil {
		return err
	}
	if _, err := n.Cmd(ctx, commander.Argv{"hostname", n.Name()}); err != nil {
		return err
	}
	after, err := root.Cmd(ctx, commander.Argv{"hostname"})
	if err != nil {
		return err
	}
	if strings.TrimSpace(before) != strings.TrimSpace(after) {
		return fmt.Errorf("%w: %q became %q", ErrIsolation, strings.TrimSpace(before), strings.TrimSpace(after))
	}
	return nil
}

func (n *Namespace) mountPrivate(ctx context.Context, entry string) error {
	external, internal, found := strings.Cut(entry, ":")
	if !found {
		external, internal = "", entry
	}
	if _, err := n.Cmd(ctx, commander.Argv{"mkdir", "-p", internal}); err != nil {
		return err
	}
	if external == "" {
		_, err := n.Cmd(ctx, commander.Argv{"mount", "-n", "-t", "tmpfs", "tmpfs", internal})
		return err
	}
	if _, err := n.Cmd(ctx, commander.Argv{"mkdir", "-p", external}); err != nil {
		return err
	}
	_, err := n.Cmd(ctx, commander.Argv{"mount", "--bind", external, internal})
	return err
}

func (n *Namespace) String() string {
	return fmt.Sprintf("LinuxNamespace(%s)", n.Name())
}

// Close stops the placeholder, gracefully then forcibly. The kernel reclaims
// the namespaces once it exits. Calling Close again is a no-op.
func (n *Namespace) Close(_ context.Context) error {
	if n.closed {
		return nil
	}
	n.closed = true
	if err := n.proc.Stop(n.env.TermGrace, n.env.KillGrace); err != nil {
		return fmt.Errorf("namespace %s: %w", n.Name(), err)
	}
	logger.Debug("Deleted", "node", n.Name())
	return nil
}
