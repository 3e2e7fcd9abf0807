package link

import (
	"fmt"

	ns "github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"

	"Micronet/api"
)

// Shaper applies link properties to one interface inside the network
// namespace of a process.
type Shaper interface {
	Apply(pid int, ifname string, props api.LinkProperties) error
}

// NetlinkShaper installs an HTB class for the rate and a netem qdisc for
// delay and loss:
//
//	tc qdisc add dev eth0 root handle 1: htb default 1
//	tc class add dev eth0 parent 1: classid 1:1 htb rate 10mbit burst 10000
//	tc qdisc add dev eth0 parent 1:1 handle 10: netem delay 20ms loss 1%
//
// Without a rate the netem qdisc becomes the root.
type NetlinkShaper struct{}

func NewNetlinkShaper() *NetlinkShaper {
	return &NetlinkShaper{}
}

func (s *NetlinkShaper) Apply(pid int, ifname string, props api.LinkProperties) error {
	if props.IsZero() {
		return nil
	}

	// enter node namespace
	nodeNs, err := ns.GetNS(fmt.Sprintf("/proc/%d/ns/net", pid))
	if err != nil {
		return fmt.Errorf("failed to get namespace of pid %d: %w", pid, err)
	}
	defer nodeNs.Close()

	return nodeNs.Do(func(_ ns.NetNS) error {
		link, err := netlink.LinkByName(ifname)
		if err != nil {
			return fmt.Errorf("failed to get link %s: %w", ifname, err)
		}
		idx := link.Attrs().Index

		netemParent := uint32(netlink.HANDLE_ROOT)
		if props.Rate > 0 {
			htb := netlink.NewHtb(netlink.QdiscAttrs{
				LinkIndex: idx,
				Handle:    netlink.MakeHandle(1, 0),
				Parent:    netlink.HANDLE_ROOT,
			})
			htb.Defcls = 1
			if err := netlink.QdiscReplace(htb); err != nil {
				return fmt.Errorf("failed to add HTB root qdisc to %s: %w", ifname, err)
			}

			class := netlink.NewHtbClass(
				netlink.ClassAttrs{
					LinkIndex: idx,
					Handle:    netlink.MakeHandle(1, 1),
					Parent:    netlink.MakeHandle(1, 0),
				},
				netlink.HtbClassAttrs{
					Rate:   props.Rate * 1000 * 1000, // bits per second
					Buffer: 10000,
					Prio:   1,
				},
			)
			if err := netlink.ClassReplace(class); err != nil {
				return fmt.Errorf("failed to add HTB class to %s: %w", ifname, err)
			}
			netemParent = netlink.MakeHandle(1, 1)
		}

		if props.Latency == 0 && props.Loss == 0 {
			return nil
		}
		netem := netlink.NewNetem(netlink.QdiscAttrs{
			LinkIndex: idx,
			Parent:    netemParent,
			Handle:    netlink.MakeHandle(10, 0),
		}, netlink.NetemQdiscAttrs{
			Latency: props.Latency * 1000, // in us
			Loss:    props.Loss,
			Limit:   300000,
		})
		if err := netlink.QdiscReplace(netem); err != nil {
			return fmt.Errorf("failed to add netem qdisc to %s: %w", ifname, err)
		}
		return nil
	})
}
