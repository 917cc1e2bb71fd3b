package userinput

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const ctrlC = 0x03

var keyNames = map[string]byte{
	"space":  ' ',
	"enter":  '\r',
	"return": '\r',
	"tab":    '\t',
}

// ParseKey turns a keybind like "space" or "n" into the byte a terminal in
// raw mode produces for it.
func ParseKey(name string) (byte, error) {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if b, ok := keyNames[lowered]; ok {
		return b, nil
	}
	if len(name) == 1 && name[0] >= 0x20 && name[0] < 0x7f {
		return name[0], nil
	}
	return 0, fmt.Errorf("unsupported keybind %q", name)
}

// Terminal waits for a keybind to be pressed on an interactive terminal.
type Terminal struct {
	file    *os.File
	keyName string
	key     byte

	start sync.Once
	keys  chan byte
}

// NewTerminal fails with ErrUnavailable when `file` is not an interactive
// terminal, there is no other way to obtain operator input in that case.
func NewTerminal(file *os.File, keybind string) (*Terminal, error) {
	fd := file.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal: %w", file.Name(), ErrUnavailable)
	}
	key, err := ParseKey(keybind)
	if err != nil {
		return nil, err
	}
	return &Terminal{
		file:    file,
		keyName: keybind,
		key:     key,
		keys:    make(chan byte, 64),
	}, nil
}

func (t *Terminal) pump() {
	buf := make([]byte, 1)
	for {
		n, err := t.file.Read(buf)
		if err != nil {
			if err != io.EOF {
				slog.Warn("terminal input stopped", "err", err)
			}
			close(t.keys)
			return
		}
		if n == 1 {
			t.keys <- buf[0]
		}
	}
}

func (t *Terminal) drain() {
	for {
		select {
		case _, ok := <-t.keys:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// WaitForEvent only accepts key presses made while it is waiting, anything
// typed before the call is discarded.
func (t *Terminal) WaitForEvent(ctx context.Context) (Event, error) {
	fd := int(t.file.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return Event{}, fmt.Errorf("enter raw mode: %w", ErrUnavailable)
	}
	defer term.Restore(fd, state)

	t.start.Do(func() { go t.pump() })
	t.drain()

	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case b, ok := <-t.keys:
			if !ok {
				return Event{}, ErrUnavailable
			}
			if b == ctrlC {
				return Event{}, ErrInterrupted
			}
			if b == t.key {
				return Event{At: time.Now(), Key: t.keyName}, nil
			}
		}
	}
}
