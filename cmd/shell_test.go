package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Micronet/pkg/commander"
	"Micronet/pkg/commander/commandertest"
	"Micronet/pkg/config"
	"Micronet/pkg/node"
)

type fakeTopology struct {
	hosts map[string]node.Host
}

func (f *fakeTopology) ShowNodes(w io.Writer) { fmt.Fprintln(w, "nodes!") }
func (f *fakeTopology) ShowLinks(w io.Writer) { fmt.Fprintln(w, "links!") }

func (f *fakeTopology) Lookup(name string) (node.Host, error) {
	if h, ok := f.hosts[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("unknown node: %s", name)
}

func TestRunShell(t *testing.T) {
	r := commandertest.NewRunner()
	r.RespondContains("ping -c1", commander.Result{RC: 1, Stdout: "1 packets transmitted, 0 received\n"})
	h1 := node.NewSharedNamespace("h1", 42, node.NewEnv(config.Default(), r))
	topo := &fakeTopology{hosts: map[string]node.Host{"h1": h1}}

	in := strings.NewReader("show nodes\nshow links\nshow bogus\n\nexec h1 ping -c1 10.0.0.2\nexec h9 true\nfrobnicate\nexit\nshow nodes\n")
	var out bytes.Buffer
	require.NoError(t, runShell(context.Background(), topo, in, &out))

	got := out.String()
	assert.Contains(t, got, "nodes!")
	assert.Contains(t, got, "links!")
	assert.Contains(t, got, "usage: show nodes|links")
	assert.Contains(t, got, "0 received\nexit status 1\n")
	assert.Contains(t, got, "Error: unknown node: h9")
	assert.Contains(t, got, `unknown command "frobnicate"`)
	assert.Equal(t, 1, strings.Count(got, "nodes!"), "input after exit is ignored")

	require.Len(t, r.Requests, 1)
	req := r.Requests[0]
	assert.True(t, req.MergeStderr)
	assert.Equal(t, []string{"bash", "-c", "ping -c1 10.0.0.2"}, req.Argv[len(req.Argv)-3:])
}

func TestRunShell_EOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runShell(context.Background(), &fakeTopology{}, strings.NewReader("show links\n"), &out))
	assert.Contains(t, out.String(), "links!")
}

func TestRunShell_Window(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,4242,0")
	t.Setenv("TMUX_PANE", "%7")
	t.Setenv("STY", "")
	r := commandertest.NewRunner()
	h1 := node.NewSharedNamespace("h1", 42, node.NewEnv(config.Default(), r))
	topo := &fakeTopology{hosts: map[string]node.Host{"h1": h1}}

	in := strings.NewReader("window h1 tail -f /var/log/frr.log\nwindow h9 top\nwindow h1\nexit\n")
	var out bytes.Buffer
	require.NoError(t, runShell(context.Background(), topo, in, &out))

	assert.Equal(t, 1, r.Count("tmux split-window -h -t %7 "+h1.PrefixString()+"tail -f /var/log/frr.log"))
	assert.Equal(t, 1, r.Count("tmux select-layout main-horizontal"))
	assert.Contains(t, out.String(), "Error: unknown node: h9")
	assert.Contains(t, out.String(), "usage: window <node> <command>")
}
