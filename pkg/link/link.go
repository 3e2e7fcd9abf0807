// Package link holds the records of virtual-Ethernet links and the traffic
// shaping applied to their ends.
package link

import (
	"fmt"

	"Micronet/api"
)

// Link is a veth pair between two nodes, referenced by name. Name1 is the
// switch for switch-host links.
type Link struct {
	Name1 string
	If1   string
	Name2 string
	If2   string
	// P2P marks a host-host link without a switch.
	P2P        bool
	Properties api.LinkProperties
}

// Key returns the canonical "name1:if1-name2:if2" identifier.
func (l Link) Key() string {
	return fmt.Sprintf("%s:%s-%s:%s", l.Name1, l.If1, l.Name2, l.If2)
}

func (l Link) String() string {
	if l.P2P {
		return l.Key() + " p2p"
	}
	return l.Key()
}
