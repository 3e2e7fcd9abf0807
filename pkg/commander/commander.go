// Package commander runs commands on behalf of a named execution context,
// optionally routed through a command prefix such as a namespace-entry
// helper.
package commander

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

var logger = log.WithPrefix("commander")

const DefaultShell = "bash"

// PrefixFunc derives the command prefix from the current working directory.
type PrefixFunc func(cwd string) []string

// Record is the bookkeeping of the last executed command.
type Record struct {
	Cmd       string
	ActualCmd string
	Result
}

// Commander executes commands for a named context. It is not safe for
// concurrent use.
type Commander struct {
	name     string
	runner   Runner
	shell    string
	cwd      string
	prefixFn PrefixFunc
	prefix   []string
	last     Record
}

// New creates a Commander that runs commands without prefix in the current
// working directory.
func New(name string, runner Runner) *Commander {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	return &Commander{
		name:   name,
		runner: runner,
		shell:  DefaultShell,
		cwd:    cwd,
	}
}

func (c *Commander) Name() string {
	return c.name
}

func (c *Commander) String() string {
	return fmt.Sprintf("Commander(%s)", c.name)
}

// SetShell sets the shell used for ShellLine commands.
func (c *Commander) SetShell(shell string) {
	if shell != "" {
		c.shell = shell
	}
}

// SetPrefixFunc installs the prefix derivation and recomputes the prefix.
func (c *Commander) SetPrefixFunc(fn PrefixFunc) {
	c.prefixFn = fn
	c.updatePrefix()
}

func (c *Commander) updatePrefix() {
	if c.prefixFn == nil {
		c.prefix = nil
		return
	}
	c.prefix = c.prefixFn(c.cwd)
}

// Prefix returns a copy of the current command prefix.
func (c *Commander) Prefix() []string {
	out := make([]string, len(c.prefix))
	copy(out, c.prefix)
	return out
}

// PrefixString returns the prefix as a line ending in a space, or "".
func (c *Commander) PrefixString() string {
	if len(c.prefix) == 0 {
		return ""
	}
	return Join(c.prefix) + " "
}

func (c *Commander) Cwd() string {
	return c.cwd
}

// SetCwd records a new working directory. Without a prefix the directory
// only applies as the working directory of later processes.
func (c *Commander) SetCwd(cwd string) {
	if c.prefixFn == nil {
		logger.Warn("'cd' does not work outside namespaces", "node", c.name, "cwd", cwd)
	} else {
		logger.Debug("new cwd", "node", c.name, "cwd", cwd)
	}
	c.cwd = cwd
	c.updatePrefix()
}

// Last returns the bookkeeping of the most recent command.
func (c *Commander) Last() Record {
	return c.last
}

type options struct {
	env         map[string]string
	mergeStderr bool
	raises      bool
}

// Option tunes a single command execution.
type Option func(*options)

// WithEnv adds environment variables to the spawned process.
func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

// MergeStderr captures stderr into stdout.
func MergeStderr() Option {
	return func(o *options) { o.mergeStderr = true }
}

// Raises turns a non-zero return code into a *CommandError.
func Raises() Option {
	return func(o *options) { o.raises = true }
}

// CmdStatus runs cmd behind the current prefix and waits for it. A non-zero
// return code is logged and, with Raises, returned as *CommandError.
func (c *Commander) CmdStatus(ctx context.Context, cmd Command, opts ...Option) (Result, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	_, chdir := chdirTarget(cmd)
	if chdir {
		cmd = ShellLine(string(cmd.(ShellLine)) + " && pwd")
	}

	argv := append(c.Prefix(), cmd.Args(c.shell)...)
	req := Request{
		Argv:        argv,
		Env:         formatEnv(o.env),
		MergeStderr: o.mergeStderr,
	}
	if c.prefixFn == nil {
		req.Dir = c.cwd
	}

	c.last = Record{Cmd: cmd.String(), ActualCmd: Join(argv)}
	logger.Debug("cmd", "node", c.name, "cmd", c.last.ActualCmd)

	res, err := c.runner.Run(ctx, req)
	c.last.Result = res
	if err != nil {
		return res, err
	}

	if res.RC != 0 {
		logger.Warn("cmd failed",
			"node", c.name,
			"cmd", c.last.ActualCmd,
			"rc", res.RC,
			"stdout", res.Stdout,
			"stderr", res.Stderr,
		)
		if o.raises {
			return res, &CommandError{Cmd: c.last.ActualCmd, RC: res.RC, Stdout: res.Stdout, Stderr: res.Stderr}
		}
	} else if chdir {
		c.SetCwd(strings.TrimSpace(res.Stdout))
	}
	return res, nil
}

// Cmd runs cmd and returns its stdout, failing on a non-zero return code.
func (c *Commander) Cmd(ctx context.Context, cmd Command, opts ...Option) (string, error) {
	res, err := c.CmdStatus(ctx, cmd, append(opts, Raises())...)
	return res.Stdout, err
}

func formatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
