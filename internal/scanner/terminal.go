package scanner

import (
	"fmt"
	"io"
	"sync"
)

// TerminalViewport is a text stand-in for the on-page scanner mount
type TerminalViewport struct {
	mu      sync.Mutex
	out     io.Writer
	mounted bool
}

func NewTerminalViewport(out io.Writer) *TerminalViewport {
	return &TerminalViewport{out: out}
}

func (v *TerminalViewport) Ensure() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mounted {
		return nil
	}
	v.mounted = true
	_, err := fmt.Fprintln(v.out, "[scanner] reading codes...")
	return err
}

func (v *TerminalViewport) Remove() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.mounted {
		return
	}
	v.mounted = false
	fmt.Fprintln(v.out, "[scanner] closed")
}

func (v *TerminalViewport) Mounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mounted
}
