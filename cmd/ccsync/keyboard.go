package main

import (
	"bufio"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/ccsync/ccsync/pkg/controller"
)

// errNotATerminal is returned by newTerminalKeyHandler when stdin isn't a
// terminal, telling the caller to fall back to newNoninteractiveKeyHandler.
var errNotATerminal = errors.New("stdin is not a terminal")

// terminalKeyHandler implements controller.KeyHandler by putting stdin into
// raw mode and reading single bytes. Raw
// mode is required because a cooked terminal buffers input until Enter,
// which defeats single-keypress detection.
type terminalKeyHandler struct {
	fd       int
	oldState *term.State
	reader   *bufio.Reader
	keys     chan controller.Key
	stop     chan struct{}
}

// newTerminalKeyHandler constructs a KeyHandler reading from os.Stdin. It
// returns an error if stdin isn't a terminal or raw mode can't be entered,
// in which case the caller should fall back to a non-interactive handler.
func newTerminalKeyHandler() (*terminalKeyHandler, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNotATerminal
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	h := &terminalKeyHandler{
		fd:       fd,
		oldState: oldState,
		reader:   bufio.NewReader(os.Stdin),
		keys:     make(chan controller.Key),
		stop:     make(chan struct{}),
	}
	go h.loop()
	return h, nil
}

func (h *terminalKeyHandler) loop() {
	for {
		b, err := h.reader.ReadByte()
		if err != nil {
			return
		}

		var key controller.Key
		switch b {
		case ' ':
			key = controller.KeyNext
		case 0x1b: // ESC
			key = controller.KeyEscape
		case 0x03: // Ctrl-C
			key = controller.KeyInterrupt
		default:
			continue
		}

		select {
		case h.keys <- key:
		case <-h.stop:
			return
		}
	}
}

// Next implements controller.KeyHandler.
func (h *terminalKeyHandler) Next() controller.Key {
	select {
	case k := <-h.keys:
		return k
	case <-h.stop:
		return controller.KeyStop
	}
}

// Stop implements controller.KeyHandler: restores the terminal's original
// mode and unblocks any pending Next call.
func (h *terminalKeyHandler) Stop() {
	select {
	case <-h.stop:
		return
	default:
		close(h.stop)
	}
	term.Restore(h.fd, h.oldState)
}

// noninteractiveKeyHandler is used when stdin isn't a terminal (piped input,
// CI, a daemonized invocation). Next always returns KeyStop immediately, so
// the manual controller runs exactly one cycle and exits rather than
// blocking forever on input that will never arrive.
type noninteractiveKeyHandler struct{}

func newNoninteractiveKeyHandler() *noninteractiveKeyHandler {
	return &noninteractiveKeyHandler{}
}

func (h *noninteractiveKeyHandler) Next() controller.Key { return controller.KeyStop }

func (h *noninteractiveKeyHandler) Stop() {}
