// internal/device/device.go
package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Driver is the uniform surface every sensor presents, whether it speaks the
// register protocol or the framed LiDAR protocol.
type Driver interface {
	Name() string
	Init() error
	Start() error
	Stop() error

	// Query runs one command and returns the captured human-readable
	// output. The output may be non-empty even when err is non-nil.
	Query(args []string) (string, error)

	Commands() []string
}

// Exchanger performs one request/response round trip. The gateway client
// satisfies it; tests substitute scripted fakes.
type Exchanger interface {
	Exchange(req []byte, timeout time.Duration) ([]byte, error)
}

// ScanTimeout is the reduced per-probe timeout used by slave-id scans.
const ScanTimeout = 1500 * time.Millisecond

// ---- ERRORS ----

var (
	ErrMissingCommand = errors.New("missing command")
	ErrUnknownCommand = errors.New("unknown command")
)

// ---- NUMBER PARSING ----

// ParseNumber accepts decimal or 0x-prefixed hexadecimal. Leading zeros do
// not switch the base.
func ParseNumber(text string) (int, bool) {
	base := 10
	digits := text
	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		base = 16
		digits = text[2:]
	}
	v, err := strconv.ParseInt(digits, base, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// ---- REGISTER DOCUMENTATION ----

// RegisterGroup documents one address window for pretty-printing; it carries
// no protocol behavior.
type RegisterGroup struct {
	Start  uint16
	End    uint16
	Access string
	Desc   string
}

// RenderGroups formats a register group table under a title line.
func RenderGroups(title string, groups []RegisterGroup) string {
	var b strings.Builder
	b.WriteString("\n" + title + "\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "  0x%04X~0x%04X | %s | %s\n", g.Start, g.End, g.Access, g.Desc)
	}
	return b.String()
}
