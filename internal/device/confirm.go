// internal/device/confirm.go
package device

import (
	"bufio"
	"io"
	"strings"
)

// Confirmer gates writes into high-risk register windows. The default asks
// on the console; scripted tests and the poller substitute their own.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConsoleConfirmer prompts on Out and accepts only the literal line "YES".
type ConsoleConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *ConsoleConfirmer) Confirm(prompt string) bool {
	io.WriteString(c.Out, prompt)
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimRight(line, "\r\n") == "YES"
}

// DenyAll refuses every risky write. Used by the background poller, which
// has no operator to ask.
type DenyAll struct{}

func (DenyAll) Confirm(string) bool { return false }

// AllowAll accepts every risky write without asking.
type AllowAll struct{}

func (AllowAll) Confirm(string) bool { return true }
