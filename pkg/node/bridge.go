package node

import (
	"context"
	"fmt"
	"sync/atomic"

	"Micronet/pkg/commander"
)

// nextBridgeOrd numbers bridges across the whole process so generated names
// never collide.
var nextBridgeOrd atomic.Int64

// Bridge is a Linux bridge device living in the namespaces of the topology
// root process.
type Bridge struct {
	*SharedNamespace
	ord  int64
	brid string
}

// NewBridge creates a bridge named name, or "br<ordinal>" when name is empty,
// inside the namespaces of rootPid. A stale device of the same name is
// removed first.
func NewBridge(ctx context.Context, name string, rootPid int, env Env) (*Bridge, error) {
	logger.Debug("Bridge: Creating")

	ord := nextBridgeOrd.Add(1) - 1
	if name == "" {
		name = fmt.Sprintf("br%d", ord)
	}
	if err := ValidateIfName(name); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	b := &Bridge{
		SharedNamespace: NewSharedNamespace(name, rootPid, env),
		ord:             ord,
		brid:            name,
	}

	if _, err := b.Cmd(ctx, commander.ShellLine("ip link delete "+b.brid+" 2>/dev/null || true")); err != nil {
		return nil, fmt.Errorf("bridge %s: %w", b.brid, err)
	}
	if _, err := b.Cmd(ctx, commander.Argv{"ip", "link", "add", b.brid, "type", "bridge"}); err != nil {
		return nil, fmt.Errorf("bridge %s: %w", b.brid, err)
	}
	if _, err := b.Cmd(ctx, commander.Argv{"ip", "link", "set", b.brid, "up"}); err != nil {
		return nil, fmt.Errorf("bridge %s: %w", b.brid, err)
	}

	logger.Debug("Created, Running", "bridge", b.brid)
	return b, nil
}

func (b *Bridge) String() string {
	return fmt.Sprintf("Bridge(%s)", b.brid)
}

// Device returns the bridge device name.
func (b *Bridge) Device() string {
	return b.brid
}

// Ordinal returns the process-wide creation ordinal of the bridge.
func (b *Bridge) Ordinal() int64 {
	return b.ord
}

// Attach enslaves ifname to the bridge. The interface must already live in
// the bridge's namespace, which is the topology root's.
func (b *Bridge) Attach(ctx context.Context, _ Host, ifname string) error {
	if _, err := b.Cmd(ctx, commander.Argv{"ip", "link", "set", ifname, "master", b.brid}); err != nil {
		return err
	}
	if _, err := b.Cmd(ctx, commander.Argv{"ip", "link", "set", ifname, "up"}); err != nil {
		return err
	}
	b.RegisterInterface(ifname)
	return nil
}

// Members lists the interfaces enslaved to the bridge device.
func (b *Bridge) Members(_ context.Context) ([]string, error) {
	return MasterMembers(b.Pid(), b.brid)
}

// Close deletes the bridge device. A device that is already gone is only
// logged.
func (b *Bridge) Close(ctx context.Context) error {
	res, err := b.CmdStatus(ctx, commander.Argv{"ip", "link", "delete", b.brid})
	if err != nil {
		return fmt.Errorf("bridge %s: %w", b.brid, err)
	}
	if res.RC == 0 {
		logger.Debug("Deleted.", "bridge", b.brid)
	}
	return nil
}
