package render

import (
	"io"
	"os"

	"golang.org/x/term"
)

const (
	ansiReset  = "\x1b[0m"
	ansiYellow = "\x1b[33m"
	ansiGreen  = "\x1b[1;32m"
)

// Color modes accepted by ColorEnabled.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ColorEnabled reports whether output to w should be decorated for mode.
// In auto mode only terminals are decorated, so redirected output stays plain.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

type palette struct {
	enabled bool
}

func newPalette(enabled bool) palette {
	return palette{enabled: enabled}
}

func (p palette) hash(s string) string {
	return p.wrap(ansiYellow, s)
}

func (p palette) branch(s string) string {
	return p.wrap(ansiGreen, s)
}

func (p palette) wrap(code, s string) string {
	if !p.enabled {
		return s
	}
	return code + s + ansiReset
}
