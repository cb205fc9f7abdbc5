// internal/model/command.go
package model

// CommandCode identifies a Pi-Lite protocol operation
type CommandCode string

const (
	CodeSpeed       CommandCode = "SPEED"
	CodeFrameBuffer CommandCode = "F"
	CodeBarGraph    CommandCode = "B"
	CodeVUMeter     CommandCode = "V"
	CodePixel       CommandCode = "P"
	CodeAll         CommandCode = "ALL"
	CodeScroll      CommandCode = "SCROLL"
	CodeText        CommandCode = "T"
)

const (
	// CommandPrefix starts every command on the wire
	CommandPrefix = "$$$"
	// CommandTerminator ends a command line
	CommandTerminator = "\r"
)

// PixelAction is the state change applied to a single LED
type PixelAction string

const (
	PixelOn     PixelAction = "ON"
	PixelOff    PixelAction = "OFF"
	PixelToggle PixelAction = "TOGGLE"
)

// Valid reports whether the action is understood by the display
func (a PixelAction) Valid() bool {
	switch a {
	case PixelOn, PixelOff, PixelToggle:
		return true
	}
	return false
}

// Command is one encoded display instruction. Values are built once at
// encode time and never mutated.
type Command struct {
	Code       CommandCode `json:"code"`
	Payload    string      `json:"payload"`
	Terminated bool        `json:"terminated"`
}

// NewCommand creates a command from an already validated payload
func NewCommand(code CommandCode, payload string, terminated bool) Command {
	return Command{
		Code:       code,
		Payload:    payload,
		Terminated: terminated,
	}
}

// String renders the command in wire format
func (c Command) String() string {
	s := CommandPrefix + string(c.Code) + c.Payload
	if c.Terminated {
		s += CommandTerminator
	}
	return s
}
