// Package ui defines the UI sink collaborator and a terminal
// implementation. The core only ever writes to a Sink; no return value
// from any Sink method influences engine behavior.
package ui

// Mode is the operating mode the UI should display.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeWatch  Mode = "watch"
)

// MessageType classifies an addMessage call.
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
)

// OperationStats is the running total a sync operation reports as it
// proceeds.
type OperationStats struct {
	TotalFiles     int
	TotalComputers int
}

// WriteOptions controls writeMessages.
type WriteOptions struct {
	Persist              bool
	ClearMessagesOnWrite bool
}

// Sink is the UI collaborator interface. The core depends only
// on this interface; no concrete rendering technology is named here.
type Sink interface {
	SetMode(mode Mode)
	Start()
	Stop()
	Clear()
	SetReady()
	StartSyncOperation()
	UpdateOperationStats(stats OperationStats)
	UpdateComputerResults(results interface{})
	CompleteOperation(result interface{})
	AddMessage(messageType MessageType, content string, suggestion string)
	WriteMessages(opts WriteOptions)
}

// Noop is a Sink that discards everything; useful as a safe default when no
// concrete UI is wired (e.g. in tests, or non-interactive invocations).
type Noop struct{}

func (Noop) SetMode(Mode)                           {}
func (Noop) Start()                                 {}
func (Noop) Stop()                                  {}
func (Noop) Clear()                                 {}
func (Noop) SetReady()                              {}
func (Noop) StartSyncOperation()                    {}
func (Noop) UpdateOperationStats(OperationStats)    {}
func (Noop) UpdateComputerResults(interface{})      {}
func (Noop) CompleteOperation(interface{})          {}
func (Noop) AddMessage(MessageType, string, string) {}
func (Noop) WriteMessages(WriteOptions)             {}
