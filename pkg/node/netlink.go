package node

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// handleAt opens a netlink handle bound to the network namespace of pid.
func handleAt(pid int) (*netlink.Handle, func(), error) {
	nsh, err := netns.GetFromPid(pid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get netns of pid %d: %w", pid, err)
	}
	h, err := netlink.NewHandleAt(nsh)
	if err != nil {
		nsh.Close()
		return nil, nil, fmt.Errorf("failed to open netlink handle in netns of pid %d: %w", pid, err)
	}
	return h, func() {
		h.Close()
		nsh.Close()
	}, nil
}

// MasterMembers lists the interfaces enslaved to master in the network
// namespace of pid.
func MasterMembers(pid int, master string) ([]string, error) {
	h, closeFn, err := handleAt(pid)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	m, err := h.LinkByName(master)
	if err != nil {
		return nil, fmt.Errorf("failed to get link %s: %w", master, err)
	}
	links, err := h.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var out []string
	for _, l := range links {
		if l.Attrs().MasterIndex == m.Attrs().Index {
			out = append(out, l.Attrs().Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LinkExists reports whether an interface named name exists in the network
// namespace of pid.
func LinkExists(pid int, name string) (bool, error) {
	h, closeFn, err := handleAt(pid)
	if err != nil {
		return false, err
	}
	defer closeFn()

	if _, err := h.LinkByName(name); err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get link %s: %w", name, err)
	}
	return true, nil
}
