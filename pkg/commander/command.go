package commander

import (
	"regexp"
	"strconv"
	"strings"
)

// Command is either a ShellLine, run through the shell, or an Argv, run
// directly.
type Command interface {
	// Args returns the argument vector to execute, using shell for ShellLine.
	Args(shell string) []string
	String() string
}

// ShellLine is a literal shell command line.
type ShellLine string

// Argv is a pre-split argument vector. It never goes through a shell.
type Argv []string

func (s ShellLine) Args(shell string) []string {
	return []string{shell, "-c", string(s)}
}

func (s ShellLine) String() string {
	return string(s)
}

func (a Argv) Args(_ string) []string {
	out := make([]string, len(a))
	copy(out, a)
	return out
}

func (a Argv) String() string {
	return Join(a)
}

var cdRe = regexp.MustCompile(`^cd(\s*|\s+(\S+))$`)

// chdirTarget reports whether the command is a `cd <path>` form.
func chdirTarget(cmd Command) (string, bool) {
	line, ok := cmd.(ShellLine)
	if !ok {
		return "", false
	}
	m := cdRe.FindStringSubmatch(string(line))
	if m == nil || m[2] == "" {
		return "", false
	}
	return m[2], true
}

// Join renders argv as a single line, quoting words that need it.
func Join(argv []string) string {
	out := make([]string, 0, len(argv))
	for _, s := range argv {
		out = append(out, Quote(s))
	}
	return strings.Join(out, " ")
}

// Quote returns s quoted for a POSIX shell when it contains anything but
// safe characters.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, unsafeRune) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func unsafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("@%+=:,./-_", r)
}

// NsenterPrefix is the prefix routing commands into every namespace of pid,
// with cwd as working directory.
func NsenterPrefix(nsenter string, pid int, cwd string) []string {
	return []string{nsenter, "-a", "-t", strconv.Itoa(pid), "--wd=" + cwd}
}
