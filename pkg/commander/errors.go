package commander

import (
	"fmt"
	"strings"
)

// CommandError reports a process that exited non-zero when success was
// required.
type CommandError struct {
	Cmd    string
	RC     int
	Stdout string
	Stderr string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed with rc %d", e.Cmd, e.RC)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
