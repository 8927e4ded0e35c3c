package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// pendingMessage is one queued addMessage call awaiting writeMessages.
type pendingMessage struct {
	messageType MessageType
	content     string
	suggestion  string
}

// Terminal is a Sink that renders to a terminal, coloring output when the
// destination is a real tty and falling back to plain text in redirected
// output (e.g. log files, CI). It is safe for concurrent use, though the
// cooperative scheduling model means calls never actually
// overlap.
type Terminal struct {
	out       io.Writer
	colorized bool

	mu       sync.Mutex
	mode     Mode
	messages []pendingMessage
}

// NewTerminal constructs a Terminal writing to out. Coloring is enabled
// only when out is a real terminal (os.Stdout/os.Stderr and isatty
// reports true); anything else — a pipe, a file, a test buffer — gets
// plain text.
func NewTerminal(out *os.File) *Terminal {
	return &Terminal{
		out:       out,
		colorized: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
	}
}

// SetMode implements Sink.
func (t *Terminal) SetMode(mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
}

// Start implements Sink.
func (t *Terminal) Start() {
	t.println(t.style(color.New(color.Bold)), fmt.Sprintf("ccsync (%s mode) starting", t.mode))
}

// Stop implements Sink.
func (t *Terminal) Stop() {
	t.println(t.style(color.New(color.Faint)), "ccsync stopped")
}

// Clear implements Sink.
func (t *Terminal) Clear() {
	if t.colorized {
		fmt.Fprint(t.out, "\033[2J\033[H")
	}
}

// SetReady implements Sink.
func (t *Terminal) SetReady() {
	t.println(t.style(color.New(color.FgGreen)), "ready — watching for changes")
}

// StartSyncOperation implements Sink.
func (t *Terminal) StartSyncOperation() {
	t.println(t.style(color.New(color.FgCyan)), "sync starting")
}

// UpdateOperationStats implements Sink.
func (t *Terminal) UpdateOperationStats(stats OperationStats) {
	t.println(t.style(color.New(color.Faint)), fmt.Sprintf(
		"planned %s across %s",
		pluralize(stats.TotalFiles, "file", "files"),
		pluralize(stats.TotalComputers, "computer", "computers"),
	))
}

// UpdateComputerResults implements Sink. The core passes a
// []syncop.ComputerResult; this package avoids importing syncop (it would
// create a cycle since syncop reports progress through this interface),
// so the terminal formats defensively via fmt.Sprintf's %v.
func (t *Terminal) UpdateComputerResults(results interface{}) {
	t.println(t.style(color.New(color.Faint)), fmt.Sprintf("computer results: %v", results))
}

// CompleteOperation implements Sink.
func (t *Terminal) CompleteOperation(result interface{}) {
	t.println(t.style(color.New(color.FgGreen, color.Bold)), fmt.Sprintf("sync complete: %v", result))
}

// AddMessage implements Sink: queues a message for the next WriteMessages
// call rather than printing immediately, so a batch of warnings from one
// sync cycle renders together.
func (t *Terminal) AddMessage(messageType MessageType, content string, suggestion string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, pendingMessage{messageType, content, suggestion})
}

// WriteMessages implements Sink.
func (t *Terminal) WriteMessages(opts WriteOptions) {
	t.mu.Lock()
	pending := t.messages
	if opts.ClearMessagesOnWrite {
		t.messages = nil
	}
	t.mu.Unlock()

	for _, m := range pending {
		style := t.style(color.New(color.FgWhite))
		switch m.messageType {
		case MessageWarning:
			style = t.style(color.New(color.FgYellow))
		case MessageError:
			style = t.style(color.New(color.FgRed))
		}
		line := m.content
		if m.suggestion != "" {
			line = fmt.Sprintf("%s (%s)", line, m.suggestion)
		}
		t.println(style, line)
	}

	if opts.Persist {
		return
	}
}

func (t *Terminal) style(c *color.Color) *color.Color {
	c.EnableColor()
	if !t.colorized {
		c.DisableColor()
	}
	return c
}

func (t *Terminal) println(style *color.Color, line string) {
	fmt.Fprintln(t.out, style.Sprint(line))
}

func pluralize(n int, singular, plural string) string {
	word := plural
	if n == 1 {
		word = singular
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(n)), word)
}
