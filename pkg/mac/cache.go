// Package mac caches the hardware addresses of interfaces owned by topology
// nodes, with a reverse index from address to owner.
package mac

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrParse = errors.New("failed to parse link-layer address")

var linkRe = regexp.MustCompile(`.*link/(loopback|ether) ([0-9a-fA-F:]+) .*`)

// Parse extracts the link-layer address from one line of `ip -o link show`
// output for an ethernet or loopback device.
func Parse(output string) (string, error) {
	m := linkRe.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrParse, strings.TrimSpace(output))
	}
	return m[2], nil
}

// Owner identifies an interface of a node.
type Owner struct {
	Node      string
	Interface string
}

func (o Owner) String() string {
	return o.Node + ":" + o.Interface
}

// Cache maps owners to addresses and back. Entries live until Reset.
type Cache struct {
	macs  map[Owner]string
	rmacs map[string]Owner
}

func NewCache() *Cache {
	return &Cache{
		macs:  make(map[Owner]string),
		rmacs: make(map[string]Owner),
	}
}

func (c *Cache) Get(node, ifname string) (string, bool) {
	mac, ok := c.macs[Owner{node, ifname}]
	return mac, ok
}

func (c *Cache) Store(node, ifname, mac string) {
	o := Owner{node, ifname}
	c.macs[o] = mac
	c.rmacs[mac] = o
}

// Owner returns the interface that reported mac.
func (c *Cache) Owner(mac string) (Owner, bool) {
	o, ok := c.rmacs[mac]
	return o, ok
}

// Resolve returns the cached address or calls query once and memoizes the
// parsed result.
func (c *Cache) Resolve(node, ifname string, query func() (string, error)) (string, error) {
	if mac, ok := c.Get(node, ifname); ok {
		return mac, nil
	}
	out, err := query()
	if err != nil {
		return "", err
	}
	mac, err := Parse(out)
	if err != nil {
		return "", fmt.Errorf("%s:%s: %w", node, ifname, err)
	}
	c.Store(node, ifname, mac)
	return mac, nil
}

func (c *Cache) Len() int {
	return len(c.macs)
}

func (c *Cache) Reset() {
	c.macs = make(map[Owner]string)
	c.rmacs = make(map[string]Owner)
}
