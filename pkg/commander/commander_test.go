package commander_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Micronet/pkg/commander"
	"Micronet/pkg/commander/commandertest"
)

func newNsCommander(r commander.Runner) *commander.Commander {
	c := commander.New("h1", r)
	c.SetPrefixFunc(func(cwd string) []string {
		return commander.NsenterPrefix("/usr/bin/nsenter", 42, cwd)
	})
	return c
}

func TestCmdStatus_ShellLineAndArgv(t *testing.T) {
	r := commandertest.NewRunner()
	c := newNsCommander(r)
	ctx := context.Background()

	_, err := c.CmdStatus(ctx, commander.ShellLine("echo hi | wc -l"))
	require.NoError(t, err)
	_, err = c.CmdStatus(ctx, commander.Argv{"ip", "link", "set", "lo", "up"})
	require.NoError(t, err)

	require.Len(t, r.Requests, 2)
	shellArgv := r.Requests[0].Argv
	assert.Equal(t, []string{"/usr/bin/nsenter", "-a", "-t", "42"}, shellArgv[:4])
	assert.Equal(t, []string{"bash", "-c", "echo hi | wc -l"}, shellArgv[5:])

	assert.Equal(t, []string{"ip", "link", "set", "lo", "up"}, r.Requests[1].Argv[5:])
	assert.Empty(t, r.Requests[1].Dir, "namespaced commands get their cwd from the prefix")
}

func TestCmdStatus_Chdir(t *testing.T) {
	r := commandertest.NewRunner()
	r.RespondContains("cd /tmp && pwd", commander.Result{Stdout: "/tmp\n"})
	c := newNsCommander(r)

	_, err := c.Cmd(context.Background(), commander.ShellLine("cd /tmp"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp", c.Cwd())
	assert.Contains(t, c.Prefix(), "--wd=/tmp")
}

func TestCmdStatus_ChdirFailureKeepsCwd(t *testing.T) {
	r := commandertest.NewRunner()
	r.RespondContains("cd /nope", commander.Result{RC: 1, Stderr: "no such directory"})
	c := newNsCommander(r)
	before := c.Cwd()

	res, err := c.CmdStatus(context.Background(), commander.ShellLine("cd /nope"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.RC)
	assert.Equal(t, before, c.Cwd())
}

func TestCmdStatus_BareCdIsNotChdir(t *testing.T) {
	r := commandertest.NewRunner()
	c := newNsCommander(r)

	_, err := c.CmdStatus(context.Background(), commander.ShellLine("cd"))
	require.NoError(t, err)
	assert.NotContains(t, r.Lines()[0], "pwd")
}

func TestCmdStatus_Raises(t *testing.T) {
	r := commandertest.NewRunner()
	r.RespondContains("false", commander.Result{RC: 3, Stdout: "out", Stderr: "boom"})
	c := newNsCommander(r)
	ctx := context.Background()

	res, err := c.CmdStatus(ctx, commander.Argv{"false"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RC)

	_, err = c.Cmd(ctx, commander.Argv{"false"})
	var cmdErr *commander.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.RC)
	assert.Equal(t, "out", cmdErr.Stdout)
	assert.Equal(t, "boom", cmdErr.Stderr)
	assert.Contains(t, cmdErr.Error(), "boom")
}

func TestCmdStatus_Bookkeeping(t *testing.T) {
	r := commandertest.NewRunner()
	r.RespondContains("uname", commander.Result{Stdout: "Linux\n", Stderr: "warn"})
	c := commander.New("root", r)

	_, err := c.CmdStatus(context.Background(), commander.ShellLine("uname"), commander.WithEnv(map[string]string{"B": "2", "A": "1"}))
	require.NoError(t, err)

	last := c.Last()
	assert.Equal(t, "uname", last.Cmd)
	assert.Equal(t, "bash -c uname", last.ActualCmd)
	assert.Equal(t, "Linux\n", last.Stdout)
	assert.Equal(t, "warn", last.Stderr)
	assert.Equal(t, []string{"A=1", "B=2"}, r.Requests[0].Env)
	assert.Equal(t, c.Cwd(), r.Requests[0].Dir)
}

func TestSetCwd_WithoutPrefix(t *testing.T) {
	c := commander.New("root", commandertest.NewRunner())
	c.SetCwd("/var")
	assert.Equal(t, "/var", c.Cwd())
	assert.Empty(t, c.Prefix())
	assert.Empty(t, c.PrefixString())
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "''"},
		{in: "eth0", want: "eth0"},
		{in: "--wd=/tmp", want: "--wd=/tmp"},
		{in: "a b", want: "'a b'"},
		{in: "it's", want: `'it'"'"'s'`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, commander.Quote(tt.in))
		})
	}
	assert.Equal(t, "ip addr add '10.0.0.1/24 x'", commander.Argv{"ip", "addr", "add", "10.0.0.1/24 x"}.String())
}
