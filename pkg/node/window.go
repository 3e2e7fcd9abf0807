package node

import (
	"context"
	"fmt"
	"os"

	"Micronet/pkg/commander"
)

// RunInWindow opens a terminal-multiplexer pane running cmd inside h. It is a
// no-op outside tmux and screen.
func RunInWindow(ctx context.Context, h Host, cmd string) error {
	logger.Debug("runInWindow", "node", h.Name(), "cmd", cmd)

	tmux := os.Getenv("TMUX") != ""
	sty := os.Getenv("STY")
	if !tmux && sty == "" {
		return nil
	}

	nscmd := h.PrefixString() + cmd
	var wcmd string
	if tmux {
		wcmd = "tmux split-window -h"
		if pane := os.Getenv("TMUX_PANE"); pane != "" {
			wcmd += " -t " + pane
		}
	} else {
		sock := fmt.Sprintf("/run/screen/S-%s/%s", os.Getenv("USER"), sty)
		if _, err := os.Stat(sock); err == nil {
			wcmd = "screen"
		} else {
			wcmd = fmt.Sprintf("sudo -u %s screen", os.Getenv("SUDO_USER"))
		}
	}

	if _, err := h.Cmd(ctx, commander.ShellLine(wcmd+" "+nscmd)); err != nil {
		return err
	}
	if tmux {
		_, err := h.Cmd(ctx, commander.ShellLine("tmux select-layout main-horizontal"))
		return err
	}
	return nil
}
