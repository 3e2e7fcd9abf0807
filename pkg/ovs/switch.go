// Package ovs provides an Open vSwitch backed switch for emulated topologies.
package ovs

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/digitalocean/go-openvswitch/ovs"

	"Micronet/pkg/commander"
	"Micronet/pkg/node"
)

var logger = log.WithPrefix("ovs")

// initPid is the process whose network namespace hosts the vswitchd
// datapath.
const initPid = 1

// Switch is an OVS bridge. It lives in the host's initial namespaces, so
// attached interfaces are moved there before becoming ports.
type Switch struct {
	*commander.Commander
	oClient *ovs.Client
	bridge  string
	intfs   []string
}

// NewSwitch replaces any stale OVS bridge named name with a fresh one.
func NewSwitch(ctx context.Context, name string, env node.Env, sudo bool) (*Switch, error) {
	if err := node.ValidateIfName(name); err != nil {
		return nil, fmt.Errorf("ovs bridge: %w", err)
	}

	var opts []ovs.OptionFunc
	if sudo {
		opts = append(opts, ovs.Sudo())
	}
	c := commander.New(name, env.Runner)
	c.SetShell(env.Shell)
	s := &Switch{
		Commander: c,
		oClient:   ovs.New(opts...),
		bridge:    name,
	}

	if err := s.oClient.VSwitch.DeleteBridge(name); err != nil {
		logger.Debug("no stale bridge", "bridge", name, "err", err)
	}
	if err := s.oClient.VSwitch.AddBridge(name); err != nil {
		return nil, fmt.Errorf("failed to add OVS bridge %s: %w", name, err)
	}
	if _, err := s.Cmd(ctx, commander.Argv{"ip", "link", "set", name, "up"}); err != nil {
		_ = s.oClient.VSwitch.DeleteBridge(name)
		return nil, fmt.Errorf("ovs bridge %s: %w", name, err)
	}

	logger.Debug("Created, Running", "bridge", name)
	return s, nil
}

func (s *Switch) String() string {
	return fmt.Sprintf("OVSBridge(%s)", s.bridge)
}

func (s *Switch) Pid() int {
	return initPid
}

func (s *Switch) Device() string {
	return s.bridge
}

func (s *Switch) RegisterInterface(ifname string) {
	if !slices.Contains(s.intfs, ifname) {
		s.intfs = append(s.intfs, ifname)
	}
}

func (s *Switch) Interfaces() []string {
	return slices.Clone(s.intfs)
}

// Attach moves ifname out of origin's namespace into the host's and adds it
// to the bridge as a port.
func (s *Switch) Attach(ctx context.Context, origin node.Host, ifname string) error {
	if origin != nil && origin.Pid() != initPid {
		if _, err := origin.Cmd(ctx, commander.Argv{"ip", "link", "set", ifname, "netns", fmt.Sprint(initPid)}); err != nil {
			return err
		}
	}
	if _, err := s.Cmd(ctx, commander.Argv{"ip", "link", "set", ifname, "up"}); err != nil {
		return err
	}
	if err := s.oClient.VSwitch.AddPort(s.bridge, ifname); err != nil {
		return fmt.Errorf("failed to add %s to OVS bridge %s: %w", ifname, s.bridge, err)
	}
	s.RegisterInterface(ifname)
	return nil
}

func (s *Switch) Members(_ context.Context) ([]string, error) {
	ports, err := s.oClient.VSwitch.ListPorts(s.bridge)
	if err != nil {
		return nil, fmt.Errorf("failed to list ports of OVS bridge %s: %w", s.bridge, err)
	}
	sort.Strings(ports)
	return ports, nil
}

// Close deletes the bridge with its ports. Failures are only logged.
func (s *Switch) Close(_ context.Context) error {
	if err := s.oClient.VSwitch.DeleteBridge(s.bridge); err != nil {
		logger.Warn("failed to delete OVS bridge", "bridge", s.bridge, "err", err)
		return nil
	}
	logger.Debug("Deleted.", "bridge", s.bridge)
	return nil
}
