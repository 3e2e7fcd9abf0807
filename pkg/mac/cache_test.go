package mac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:   "ether",
			output: "7: h1-s1@if8: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc noqueue state UP mode DEFAULT group default qlen 1000\\    link/ether 4a:9e:0c:11:22:33 brd ff:ff:ff:ff:ff:ff link-netnsid 0\n",
			want:   "4a:9e:0c:11:22:33",
		},
		{
			name:   "loopback",
			output: "1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN mode DEFAULT group default qlen 1000\\    link/loopback 00:00:00:00:00:00 brd 00:00:00:00:00:00\n",
			want:   "00:00:00:00:00:00",
		},
		{
			name:    "missing device",
			output:  "",
			wantErr: true,
		},
		{
			name:    "unsupported kind",
			output:  "5: gre0@NONE: <NOARP> mtu 1476 qdisc noop state DOWN\\    link/gre 0.0.0.0 brd 0.0.0.0\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCache_ResolveMemoizes(t *testing.T) {
	c := NewCache()
	calls := 0
	query := func() (string, error) {
		calls++
		return "2: eth0: <UP> mtu 1500\\    link/ether aa:bb:cc:dd:ee:ff brd ff:ff:ff:ff:ff:ff\n", nil
	}

	first, err := c.Resolve("h1", "eth0", query)
	require.NoError(t, err)
	second, err := c.Resolve("h1", "eth0", query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	owner, ok := c.Owner("aa:bb:cc:dd:ee:ff")
	require.True(t, ok)
	assert.Equal(t, Owner{Node: "h1", Interface: "eth0"}, owner)
}

func TestCache_ResolveParseFailureNotCached(t *testing.T) {
	c := NewCache()
	_, err := c.Resolve("h1", "eth9", func() (string, error) { return "", nil })
	require.ErrorIs(t, err, ErrParse)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Reset(t *testing.T) {
	c := NewCache()
	c.Store("s1", "s1-h1", "aa:aa:aa:aa:aa:aa")
	c.Reset()
	_, ok := c.Get("s1", "s1-h1")
	assert.False(t, ok)
	_, ok = c.Owner("aa:aa:aa:aa:aa:aa")
	assert.False(t, ok)
}
