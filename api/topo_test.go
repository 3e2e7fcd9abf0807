package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topoYAML = `
name: pim-uplink
hosts:
  r1:
    ip: 10.0.1.1/24
    defaultRoute: via 10.0.1.254
    privateMounts:
      - /var/run/frr
    namespaces:
      pid: true
    vrf: blue
  r2:
    ip: 10.0.1.2
    kind: namespace
  c1:
    kind: container
    image: frr:v5
switches:
  s1: {}
  s2:
    kind: ovs
links:
  - node1: r1
    node2: s1
    intfName1: r1-eth0
    intfName2: s1-eth0
    properties:
      latency: 20
      loss: 1.5
  - node1: s1
    node2: r2
  - node1: r1
    node2: r2
  - node1: s1
    node2: r2
`

func TestParseDescription(t *testing.T) {
	d, err := ParseDescription([]byte(topoYAML))
	require.NoError(t, err)

	assert.Equal(t, "pim-uplink", d.Name)
	require.Len(t, d.Hosts, 3)
	r1 := d.Hosts["r1"]
	assert.Equal(t, "10.0.1.1/24", r1.IP)
	assert.Equal(t, "via 10.0.1.254", r1.DefaultRoute)
	assert.Equal(t, []string{"/var/run/frr"}, r1.PrivateMounts)
	assert.True(t, r1.Namespaces.PID)
	assert.Equal(t, "blue", r1.Extra["vrf"])
	assert.Equal(t, KindContainer, d.Hosts["c1"].Kind)
	assert.Equal(t, SwitchOVS, d.Switches["s2"].Kind)

	// The switch side is canonicalized first, defaults fill in names and
	// the duplicate s1-r2 entry is recorded once.
	links := d.SortedLinks()
	require.Len(t, links, 3)
	assert.Equal(t, "r1:r1-r2-r2:r2-r1", links[0].Key())
	assert.Equal(t, "s1:s1-eth0-r1:r1-eth0", links[1].Key())
	assert.Equal(t, uint32(20), links[1].Properties.Latency)
	assert.Equal(t, "s1:s1-r2-r2:r2-s1", links[2].Key())

	require.NoError(t, d.Validate())
}

func TestDescription_AddLinkErrors(t *testing.T) {
	d := NewDescription("")
	assert.Equal(t, "unnamed", d.Name)
	d.AddHost("h1", HostParams{})
	d.AddSwitch("s1", SwitchParams{})
	d.AddSwitch("s2", SwitchParams{})

	require.ErrorIs(t, d.AddLink("s1", "s2", LinkOptions{}), ErrSwitchToSwitch)
	require.ErrorIs(t, d.AddLink("s1", "h9", LinkOptions{}), ErrUnknownEndpoint)
	require.ErrorIs(t, d.AddLink("h9", "s1", LinkOptions{}), ErrUnknownEndpoint)
	require.ErrorIs(t, d.AddLink("h1", "h9", LinkOptions{}), ErrUnknownEndpoint)
	assert.Empty(t, d.Links)
}

func TestDescription_Validate(t *testing.T) {
	d := NewDescription("bad")
	d.AddHost("x", HostParams{})
	d.AddSwitch("x", SwitchParams{})
	d.AddHost("h1", HostParams{})
	d.AddHost("h2", HostParams{})
	require.NoError(t, d.AddLink("h1", "h2", LinkOptions{IntfName1: "a-much-too-long-intf"}))

	err := d.Validate()
	require.ErrorIs(t, err, ErrNameCollision)
	require.ErrorIs(t, err, ErrIfNameTooLong)
}

func TestLoadDescription(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(topoYAML), 0o600))

	d, err := LoadDescription(path)
	require.NoError(t, err)
	assert.Len(t, d.Switches, 2)

	_, err = LoadDescription(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseDescription([]byte("links:\n  - node1: nope\n    node2: nada\n"))
	require.ErrorIs(t, err, ErrUnknownEndpoint)
}
