package pkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"Micronet/api"
	"Micronet/pkg/commander"
	"Micronet/pkg/config"
	"Micronet/pkg/node"
	"Micronet/pkg/util"
)

// Network builds a topology from a Description and configures its hosts.
type Network struct {
	*Manager
	desc       *api.Description
	hostParams map[string]api.HostParams
	configured map[string]bool
	prefixLen  int
}

// NewNetwork creates hosts, then switches, then links ordered by their
// first and second endpoint, and finally configures the hosts. Anything
// already built is torn down when a step fails.
func NewNetwork(ctx context.Context, cfg *config.Config, desc *api.Description, opts ...Option) (*Network, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	m, err := NewManager(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	n := &Network{
		Manager:    m,
		desc:       desc,
		hostParams: make(map[string]api.HostParams),
		configured: make(map[string]bool),
		prefixLen:  cfg.PrefixLen,
	}
	if err := n.build(ctx); err != nil {
		return nil, errors.Join(err, m.Delete(ctx))
	}
	return n, nil
}

func (n *Network) build(ctx context.Context) error {
	logger.Info("Building topology", "name", n.desc.Name)

	for _, name := range sortedNames(n.desc.Hosts) {
		if _, err := n.AddHost(ctx, name, n.desc.Hosts[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedNames(n.desc.Switches) {
		if _, err := n.AddSwitch(ctx, name, n.desc.Switches[name]); err != nil {
			return err
		}
	}
	for _, l := range n.desc.SortedLinks() {
		if err := n.AddLink(ctx, l.Name1, l.Name2, l.If1, l.If2, l.Properties); err != nil {
			return err
		}
	}
	return n.ConfigureHosts(ctx)
}

// AddHost creates a host and remembers its parameters for ConfigureHosts.
func (n *Network) AddHost(ctx context.Context, name string, params api.HostParams) (node.Host, error) {
	h, err := n.Manager.AddHost(ctx, name, params)
	if err != nil {
		return nil, err
	}
	n.hostParams[name] = params
	return h, nil
}

// ConfigureHosts assigns addresses and default routes to every host not
// configured yet. The address goes on the host's first interface.
func (n *Network) ConfigureHosts(ctx context.Context) error {
	for _, name := range n.HostNames() {
		if n.configured[name] {
			continue
		}
		h, _ := n.Host(name)
		params := n.hostParams[name]

		if params.IP != "" {
			intfs := h.Interfaces()
			if len(intfs) == 0 {
				logger.Warn("host has no interface, skipping address", "host", name, "ip", params.IP)
			} else {
				addr, err := util.HostAddr(params.IP, n.prefixLen)
				if err != nil {
					return fmt.Errorf("host %s: %w", name, err)
				}
				if _, err := h.Cmd(ctx, commander.Argv{"ip", "addr", "add", addr, "dev", intfs[0]}); err != nil {
					return err
				}
			}
		}
		if params.DefaultRoute != "" {
			argv := append(commander.Argv{"ip", "route", "add", "default"}, strings.Fields(params.DefaultRoute)...)
			if _, err := h.Cmd(ctx, argv); err != nil {
				return err
			}
		}
		n.configured[name] = true
	}
	return nil
}

// Description returns the topology the network was built from.
func (n *Network) Description() *api.Description {
	return n.desc
}

// Stop tears the network down.
func (n *Network) Stop(ctx context.Context) error {
	logger.Info("Stopping topology", "name", n.desc.Name)
	return n.Delete(ctx)
}

func (n *Network) ShowNodes(w io.Writer) {
	for _, name := range n.HostNames() {
		h, _ := n.Host(name)
		params := n.hostParams[name]
		kind := params.Kind
		if kind == "" {
			kind = api.KindNamespace
		}
		fmt.Fprintf(w, "Host: %s, Kind: %s, Pid: %d, Interfaces: %s, IP: %s\n",
			name, kind, h.Pid(), strings.Join(h.Interfaces(), ","), params.IP)
	}
	for _, name := range n.SwitchNames() {
		sw, _ := n.Switch(name)
		fmt.Fprintf(w, "Switch: %s, Device: %s, Ports: %s\n",
			name, sw.Device(), strings.Join(sw.Interfaces(), ","))
	}
}

func (n *Network) ShowLinks(w io.Writer) {
	for _, l := range n.Links() {
		p := l.Properties
		fmt.Fprintf(w, "Link: %s, Bw: %dMbps, Delay: %dms, Loss: %.2f\n", l, p.Rate, p.Latency, p.Loss)
	}
}
