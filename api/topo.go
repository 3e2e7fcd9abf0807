package api

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownEndpoint = errors.New("link endpoint is not a known host or switch")
	ErrSwitchToSwitch  = errors.New("links between two switches are not supported")
	ErrNameCollision   = errors.New("name used by both a host and a switch")
	ErrIfNameTooLong   = fmt.Errorf("interface name exceeds %d bytes", unix.IFNAMSIZ)
)

// Description is a declarative topology: hosts, switches and the links
// between them, indexed by switch (or left host) then host.
type Description struct {
	Name     string
	Hosts    map[string]HostParams
	Switches map[string]SwitchParams
	Links    map[string]map[string][]IntfPair
}

func NewDescription(name string) *Description {
	if name == "" {
		name = "unnamed"
	}
	return &Description{
		Name:     name,
		Hosts:    make(map[string]HostParams),
		Switches: make(map[string]SwitchParams),
		Links:    make(map[string]map[string][]IntfPair),
	}
}

func (d *Description) AddHost(name string, p HostParams) {
	d.Hosts[name] = p
}

func (d *Description) AddSwitch(name string, p SwitchParams) {
	d.Switches[name] = p
}

// LinkOptions override the default interface names of a link.
type LinkOptions struct {
	IntfName1  string
	IntfName2  string
	Properties LinkProperties
}

// AddLink records a link between a switch and a host, or between two hosts.
// The switch side always ends up first. Interface names default to
// "<name1>-<name2>" and "<name2>-<name1>". Adding the same pair twice
// records it once.
func (d *Description) AddLink(name1, name2 string, opts LinkOptions) error {
	if1 := opts.IntfName1
	if if1 == "" {
		if1 = name1 + "-" + name2
	}
	if2 := opts.IntfName2
	if if2 == "" {
		if2 = name2 + "-" + name1
	}

	_, sw1 := d.Switches[name1]
	_, sw2 := d.Switches[name2]
	_, h1 := d.Hosts[name1]
	_, h2 := d.Hosts[name2]
	switch {
	case sw1 && sw2:
		return fmt.Errorf("%w: %s-%s", ErrSwitchToSwitch, name1, name2)
	case sw1:
		if !h2 {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name2)
		}
	case sw2:
		if !h1 {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name1)
		}
		name1, name2 = name2, name1
		if1, if2 = if2, if1
	default:
		if !h1 {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name1)
		}
		if !h2 {
			return fmt.Errorf("%w: %s", ErrUnknownEndpoint, name2)
		}
	}

	if d.Links[name1] == nil {
		d.Links[name1] = make(map[string][]IntfPair)
	}
	for _, p := range d.Links[name1][name2] {
		if p.If1 == if1 && p.If2 == if2 {
			return nil
		}
	}
	d.Links[name1][name2] = append(d.Links[name1][name2], IntfPair{If1: if1, If2: if2, Properties: opts.Properties})
	return nil
}

// Validate checks names against the kernel limits and the host and switch
// namespaces for overlap.
func (d *Description) Validate() error {
	var errs []error
	for name := range d.Switches {
		if _, ok := d.Hosts[name]; ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNameCollision, name))
		}
		if len(name) > unix.IFNAMSIZ {
			errs = append(errs, fmt.Errorf("switch %s: %w", name, ErrIfNameTooLong))
		}
	}
	for _, l := range d.SortedLinks() {
		for _, ifname := range []string{l.If1, l.If2} {
			if len(ifname) > unix.IFNAMSIZ {
				errs = append(errs, fmt.Errorf("link %s: %w: %q", l.Key(), ErrIfNameTooLong, ifname))
			}
		}
	}
	return errors.Join(errs...)
}

// LinkEntry is one flattened link of a Description.
type LinkEntry struct {
	Name1 string
	Name2 string
	IntfPair
}

func (l LinkEntry) Key() string {
	return fmt.Sprintf("%s:%s-%s:%s", l.Name1, l.If1, l.Name2, l.If2)
}

// SortedLinks flattens the links ordered by first name, then second name,
// then interface names.
func (d *Description) SortedLinks() []LinkEntry {
	var out []LinkEntry
	for _, n1 := range sortedKeys(d.Links) {
		for _, n2 := range sortedKeys(d.Links[n1]) {
			pairs := append([]IntfPair(nil), d.Links[n1][n2]...)
			sort.Slice(pairs, func(i, j int) bool {
				if pairs[i].If1 != pairs[j].If1 {
					return pairs[i].If1 < pairs[j].If1
				}
				return pairs[i].If2 < pairs[j].If2
			})
			for _, p := range pairs {
				out = append(out, LinkEntry{Name1: n1, Name2: n2, IntfPair: p})
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TopoFile is the YAML form of a Description.
type TopoFile struct {
	Name     string                  `yaml:"name,omitempty"`
	Hosts    map[string]HostParams   `yaml:"hosts"`
	Switches map[string]SwitchParams `yaml:"switches"`
	Links    []LinkSpec              `yaml:"links"`
}

// ParseDescription decodes a YAML topology and canonicalizes its links.
func ParseDescription(data []byte) (*Description, error) {
	var f TopoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error unmarshaling topology: %w", err)
	}

	d := NewDescription(f.Name)
	for name, p := range f.Hosts {
		d.AddHost(name, p)
	}
	for name, p := range f.Switches {
		d.AddSwitch(name, p)
	}
	for i, l := range f.Links {
		err := d.AddLink(l.Node1, l.Node2, LinkOptions{
			IntfName1:  l.IntfName1,
			IntfName2:  l.IntfName2,
			Properties: l.Properties,
		})
		if err != nil {
			return nil, fmt.Errorf("links[%d]: %w", i, err)
		}
	}
	return d, nil
}

// LoadDescription reads and parses the topology file at path.
func LoadDescription(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading topology file: %w", err)
	}
	return ParseDescription(data)
}
