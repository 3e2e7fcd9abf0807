// Package node implements the execution contexts of an emulated topology:
// namespaces owning a placeholder process, contexts sharing the namespaces
// of an existing process, and the switches living in them.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"

	"Micronet/pkg/commander"
	"Micronet/pkg/config"
)

var logger = log.WithPrefix("node")

// MaxIfNameLen is the kernel interface-name ceiling.
const MaxIfNameLen = unix.IFNAMSIZ

var (
	ErrNameRequired = errors.New("name is required")
	ErrNameTooLong  = fmt.Errorf("name exceeds %d bytes", MaxIfNameLen)
	ErrIsolation    = errors.New("hostname change leaked into the root namespace")
)

// Host is anything commands can be run in.
type Host interface {
	Name() string
	Pid() int
	Cwd() string
	PrefixString() string
	Cmd(ctx context.Context, cmd commander.Command, opts ...commander.Option) (string, error)
	CmdStatus(ctx context.Context, cmd commander.Command, opts ...commander.Option) (commander.Result, error)
	RegisterInterface(ifname string)
	Interfaces() []string
	Close(ctx context.Context) error
}

// Switch is a Host owning one virtual switch device.
type Switch interface {
	Host
	Device() string
	// Attach enslaves ifname, currently living in origin's namespace, to the
	// switch device and brings it up.
	Attach(ctx context.Context, origin Host, ifname string) error
	// Members lists the interfaces attached to the switch device.
	Members(ctx context.Context) ([]string, error)
}

// Env carries what every node needs to spawn and prefix commands.
type Env struct {
	Runner      commander.Runner
	Unshare     string
	Nsenter     string
	Placeholder string
	Shell       string
	TermGrace   time.Duration
	KillGrace   time.Duration
}

func NewEnv(cfg *config.Config, runner commander.Runner) Env {
	return Env{
		Runner:      runner,
		Unshare:     cfg.Unshare,
		Nsenter:     cfg.Nsenter,
		Placeholder: cfg.Placeholder,
		Shell:       cfg.Shell,
		TermGrace:   cfg.TermGrace,
		KillGrace:   cfg.KillGrace,
	}
}

// ValidateIfName checks name against the kernel interface-name limit.
func ValidateIfName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > MaxIfNameLen {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	return nil
}
