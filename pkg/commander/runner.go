package commander

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Request describes one blocking process invocation.
type Request struct {
	Argv []string
	Dir  string
	Env  []string
	// MergeStderr sends stderr into the captured stdout.
	MergeStderr bool
}

// Result is the outcome of a finished process.
type Result struct {
	RC     int
	Stdout string
	Stderr string
}

// Runner spawns processes. The error return of Run is only for processes
// that could not be started; a non-zero exit is reported through Result.RC.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
	Start(argv []string) (Process, error)
}

// Process is a long-lived child kept alive by its open stdin.
type Process interface {
	Pid() int
	// Stop closes stdin, sends SIGTERM and waits up to term, then kills and
	// waits up to kill. It is safe to call more than once.
	Stop(term, kill time.Duration) error
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	if len(req.Argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = append(cmd.Environ(), req.Env...)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	if req.MergeStderr {
		cmd.Stderr = &outBuf
	} else {
		cmd.Stderr = &errBuf
	}

	err := cmd.Run()
	res := Result{Stdout: outBuf.String(), Stderr: errBuf.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.RC = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to run %s: %w", Join(req.Argv), err)
	}
	return res, nil
}

func (r *ExecRunner) Start(argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin of %s: %w", argv[0], err)
	}
	// stdout and stderr stay nil: the child gets /dev/null.
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start %s: %w", Join(argv), err)
	}

	p := &execProcess{cmd: cmd, stdin: stdin, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	done    chan struct{}
	waitErr error

	once    sync.Once
	stopErr error
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Stop(term, kill time.Duration) error {
	p.once.Do(func() {
		p.stopErr = p.stop(term, kill)
	})
	return p.stopErr
}

func (p *execProcess) stop(term, kill time.Duration) error {
	p.stdin.Close()
	_ = p.cmd.Process.Signal(unix.SIGTERM)

	select {
	case <-p.done:
		return nil
	case <-time.After(term):
	}

	logger.Warn("placeholder did not exit, killing", "pid", p.Pid(), "grace", term)
	_ = p.cmd.Process.Kill()
	select {
	case <-p.done:
		return nil
	case <-time.After(kill):
		return fmt.Errorf("process %d still running after kill", p.Pid())
	}
}
