package pkg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"Micronet/api"
	"Micronet/pkg/commander"
	"Micronet/pkg/config"
	"Micronet/pkg/link"
	"Micronet/pkg/mac"
	"Micronet/pkg/node"
	"Micronet/pkg/ovs"
)

var logger = log.WithPrefix("micronet")

var (
	ErrDuplicateName  = errors.New("name already in use")
	ErrUnknownNode    = errors.New("unknown node")
	ErrUnknownKind    = errors.New("unknown kind")
	ErrInvalidLink    = errors.New("invalid link")
	ErrTopologyActive = errors.New("another topology is active")
	ErrDeleted        = errors.New("topology already deleted")
)

// Only one topology may be alive in a process.
var (
	activeMu sync.Mutex
	active   *Manager
)

// Manager is the root of an emulated topology. It is itself a namespace in
// which switches live and veth pairs are created, and it owns every host,
// switch and link. It is not safe for concurrent use.
type Manager struct {
	*node.Namespace
	cfg *config.Config
	env node.Env

	hosts     map[string]node.Host
	switches  map[string]node.Switch
	links     map[string]link.Link
	linkOrder []string
	macs      *mac.Cache

	shaper  link.Shaper
	cm      *node.ContainerManager
	deleted bool
}

type settings struct {
	runner commander.Runner
	shaper link.Shaper
}

// Option customizes a Manager.
type Option func(*settings)

// WithRunner replaces the process runner.
func WithRunner(r commander.Runner) Option {
	return func(s *settings) { s.runner = r }
}

// WithShaper replaces the link shaper.
func WithShaper(sh link.Shaper) Option {
	return func(s *settings) { s.shaper = sh }
}

// NewManager creates the root namespace of a new topology. It fails with
// ErrTopologyActive while another Manager has not been deleted.
func NewManager(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = commander.NewExecRunner()
	}
	if s.shaper == nil {
		s.shaper = link.NewNetlinkShaper()
	}

	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return nil, ErrTopologyActive
	}

	logger.Debug("Creating", "topology", "micronet")
	env := node.NewEnv(cfg, s.runner)
	root, err := node.NewNamespace(ctx, "micronet", node.DefaultNamespaceOptions(), env)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		Namespace: root,
		cfg:       cfg,
		env:       env,
		hosts:     make(map[string]node.Host),
		switches:  make(map[string]node.Switch),
		links:     make(map[string]link.Link),
		macs:      mac.NewCache(),
		shaper:    s.shaper,
	}
	active = m
	return m, nil
}

// WithManager runs fn against a fresh topology and always deletes it.
func WithManager(ctx context.Context, cfg *config.Config, fn func(*Manager) error, opts ...Option) (err error) {
	m, err := NewManager(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, m.Delete(ctx))
	}()
	return fn(m)
}

func (m *Manager) String() string {
	return "Micronet()"
}

func (m *Manager) checkName(name string) error {
	if m.deleted {
		return ErrDeleted
	}
	if _, ok := m.hosts[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if _, ok := m.switches[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return nil
}

// AddHost creates a host of the kind named in params, a namespace by
// default.
func (m *Manager) AddHost(ctx context.Context, name string, params api.HostParams) (node.Host, error) {
	logger.Debug("add_host", "name", name, "kind", params.Kind)
	if name == "" {
		return nil, node.ErrNameRequired
	}
	if err := m.checkName(name); err != nil {
		return nil, err
	}

	var h node.Host
	switch params.Kind {
	case "", api.KindNamespace:
		opts := node.DefaultNamespaceOptions()
		opts.Cgroup = params.Namespaces.Cgroup
		opts.IPC = params.Namespaces.IPC
		opts.PID = params.Namespaces.PID
		opts.Time = params.Namespaces.Time
		opts.User = params.Namespaces.User
		opts.SetHostname = !params.KeepHostname
		opts.PrivateMounts = params.PrivateMounts

		n, err := node.NewNamespace(ctx, name, opts, m.env)
		if err != nil {
			return nil, err
		}
		h = n
	case api.KindContainer:
		if m.cm == nil {
			cm, err := node.NewContainerManager()
			if err != nil {
				return nil, err
			}
			m.cm = cm
		}
		c, err := m.cm.AddNode(ctx, name, params.Image, m.env)
		if err != nil {
			return nil, err
		}
		h = c
	default:
		return nil, fmt.Errorf("%w: host %s: %q", ErrUnknownKind, name, params.Kind)
	}

	m.hosts[name] = h
	return h, nil
}

// AddSwitch creates a switch in the topology's namespace. An empty name
// yields a generated "br<ordinal>" Linux bridge.
func (m *Manager) AddSwitch(ctx context.Context, name string, params api.SwitchParams) (node.Switch, error) {
	logger.Debug("add_switch", "name", name, "kind", params.Kind)
	if err := m.checkName(name); err != nil {
		return nil, err
	}

	var sw node.Switch
	switch params.Kind {
	case "", api.SwitchLinux:
		b, err := node.NewBridge(ctx, name, m.Pid(), m.env)
		if err != nil {
			return nil, err
		}
		sw = b
	case api.SwitchOVS:
		if name == "" {
			return nil, fmt.Errorf("ovs switch: %w", node.ErrNameRequired)
		}
		s, err := ovs.NewSwitch(ctx, name, m.env, m.cfg.OvsSudo)
		if err != nil {
			return nil, err
		}
		sw = s
	default:
		return nil, fmt.Errorf("%w: switch %s: %q", ErrUnknownKind, name, params.Kind)
	}

	if name == "" {
		if err := m.checkName(sw.Name()); err != nil {
			_ = sw.Close(ctx)
			return nil, err
		}
	}
	m.switches[sw.Name()] = sw
	return sw, nil
}

// AddLink connects two nodes with a veth pair. A switch endpoint is always
// taken as the first side; between two hosts the link is point-to-point.
// Adding an already recorded link is a no-op.
func (m *Manager) AddLink(ctx context.Context, name1, name2, if1, if2 string, props api.LinkProperties) error {
	if m.deleted {
		return ErrDeleted
	}

	_, isSw1 := m.switches[name1]
	_, isSw2 := m.switches[name2]
	switch {
	case isSw1 && isSw2:
		return fmt.Errorf("%w: %s and %s are both switches", ErrInvalidLink, name1, name2)
	case isSw2:
		name1, name2 = name2, name1
		if1, if2 = if2, if1
	}
	p2p := !isSw1 && !isSw2

	if p2p {
		if _, ok := m.hosts[name1]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, name1)
		}
	}
	host2, ok := m.hosts[name2]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name2)
	}
	if err := node.ValidateIfName(if1); err != nil {
		return err
	}
	if err := node.ValidateIfName(if2); err != nil {
		return err
	}

	l := link.Link{Name1: name1, If1: if1, Name2: name2, If2: if2, P2P: p2p, Properties: props}
	key := l.Key()
	if _, ok := m.links[key]; ok {
		return nil
	}
	logger.Debug("add_link", "link", l.String())

	var ends, cleanup []endpoint
	if p2p {
		host1 := m.hosts[name1]
		ends = []endpoint{{host1, if1}, {host2, if2}}
		// if1 may still be in the root namespace or already moved.
		cleanup = []endpoint{{m, if1}, {host1, if1}, {host2, if2}}
	} else {
		ends = []endpoint{{m.switches[name1], if1}, {host2, if2}}
		cleanup = []endpoint{{host2, if2}, {m, if1}}
	}

	if err := m.createVeth(ctx, l, ends); err != nil {
		m.removeVeth(ctx, key, cleanup)
		return err
	}
	if !props.IsZero() {
		for _, e := range ends {
			if err := m.shaper.Apply(e.host.Pid(), e.ifname, props); err != nil {
				m.removeVeth(ctx, key, cleanup)
				return fmt.Errorf("link %s: %w", key, err)
			}
		}
	}

	// Only a complete link is recorded, so a failed one can be retried.
	for _, e := range ends {
		e.host.RegisterInterface(e.ifname)
	}
	m.links[key] = l
	m.linkOrder = append(m.linkOrder, key)

	// Cache the MAC values, and reverse mapping
	if _, err := m.GetMac(ctx, name1, if1); err != nil {
		return err
	}
	_, err := m.GetMac(ctx, name2, if2)
	return err
}

// createVeth creates the pair in the root namespace and moves each end to
// its node. For a switch link the switch end is attached last.
func (m *Manager) createVeth(ctx context.Context, l link.Link, ends []endpoint) error {
	if l.P2P {
		if _, err := m.Cmd(ctx, commander.Argv{"ip", "link", "add", l.If1, "type", "veth", "peer", "name", l.If2}); err != nil {
			return err
		}
		for _, e := range ends {
			if _, err := m.Cmd(ctx, commander.Argv{"ip", "link", "set", e.ifname, "netns", strconv.Itoa(e.host.Pid())}); err != nil {
				return err
			}
			if _, err := e.host.Cmd(ctx, commander.Argv{"ip", "link", "set", e.ifname, "up"}); err != nil {
				return err
			}
		}
		return nil
	}

	sw := m.switches[l.Name1]
	host := ends[1].host
	logger.Debug("Creating veth pair", "link", l.Key())
	if _, err := m.Cmd(ctx, commander.Argv{"ip", "link", "add", l.If1, "type", "veth", "peer", "name", l.If2, "netns", strconv.Itoa(host.Pid())}); err != nil {
		return err
	}
	if _, err := host.Cmd(ctx, commander.Argv{"ip", "link", "set", l.If2, "up"}); err != nil {
		return err
	}
	return sw.Attach(ctx, m, l.If1)
}

// removeVeth deletes a half-built pair. Removing either end removes both, so
// the candidates are tried in order until one succeeds.
func (m *Manager) removeVeth(ctx context.Context, key string, cands []endpoint) {
	for _, e := range cands {
		res, err := e.host.CmdStatus(ctx, commander.Argv{"ip", "link", "delete", e.ifname})
		if err == nil && res.RC == 0 {
			logger.Debug("Removed incomplete veth pair", "link", key, "node", e.host.Name())
			return
		}
	}
	logger.Warn("failed to remove incomplete veth pair", "link", key)
}

type endpoint struct {
	host   node.Host
	ifname string
}

// GetMac returns the hardware address of ifname on the named host or
// switch, querying the node only on the first call.
func (m *Manager) GetMac(ctx context.Context, name, ifname string) (string, error) {
	var dev node.Host
	if h, ok := m.hosts[name]; ok {
		dev = h
	} else if sw, ok := m.switches[name]; ok {
		dev = sw
	} else {
		return "", fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}

	return m.macs.Resolve(name, ifname, func() (string, error) {
		res, err := dev.CmdStatus(ctx, commander.Argv{"ip", "-o", "link", "show", ifname})
		return res.Stdout, err
	})
}

// MacOwner returns the node and interface that reported hwaddr.
func (m *Manager) MacOwner(hwaddr string) (mac.Owner, bool) {
	return m.macs.Owner(hwaddr)
}

// Lookup resolves name to a switch, or else to a host.
func (m *Manager) Lookup(name string) (node.Host, error) {
	if sw, ok := m.switches[name]; ok {
		return sw, nil
	}
	if h, ok := m.hosts[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
}

func (m *Manager) Host(name string) (node.Host, bool) {
	h, ok := m.hosts[name]
	return h, ok
}

func (m *Manager) Switch(name string) (node.Switch, bool) {
	sw, ok := m.switches[name]
	return sw, ok
}

func (m *Manager) HostNames() []string {
	return sortedNames(m.hosts)
}

func (m *Manager) SwitchNames() []string {
	return sortedNames(m.switches)
}

// Links returns the links in creation order.
func (m *Manager) Links() []link.Link {
	out := make([]link.Link, 0, len(m.linkOrder))
	for _, k := range m.linkOrder {
		out = append(out, m.links[k])
	}
	return out
}

func sortedNames[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Delete tears the topology down: links, then hosts, then switches, then the
// root namespace. Deleting twice is a no-op.
func (m *Manager) Delete(ctx context.Context) error {
	if m.deleted {
		return nil
	}
	logger.Debug("Deleting.", "topology", "micronet")

	var errs []error
	for _, key := range m.linkOrder {
		l := m.links[key]
		host, ok := m.hosts[l.Name2]
		if !ok {
			continue
		}
		logger.Debug("Deleting veth pair", "link", key)
		// Removing one end removes the pair; an end already gone is fine.
		if _, err := host.CmdStatus(ctx, commander.Argv{"ip", "link", "delete", l.If2}); err != nil {
			errs = append(errs, err)
		}
	}
	m.links = make(map[string]link.Link)
	m.linkOrder = nil

	for _, name := range m.HostNames() {
		if err := m.hosts[name].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.hosts = make(map[string]node.Host)

	for _, name := range m.SwitchNames() {
		if err := m.switches[name].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.switches = make(map[string]node.Switch)
	m.macs.Reset()

	if m.cm != nil {
		if err := m.cm.Close(); err != nil {
			errs = append(errs, err)
		}
		m.cm = nil
	}

	if err := m.Namespace.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	m.deleted = true

	activeMu.Lock()
	if active == m {
		active = nil
	}
	activeMu.Unlock()

	logger.Debug("Deleted.", "topology", "micronet")
	return errors.Join(errs...)
}
