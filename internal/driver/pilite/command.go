// internal/driver/pilite/command.go
package pilite

// Display geometry and protocol limits
const (
	Columns = 14
	Rows    = 9

	FrameBufferLength = Columns * Rows

	MinPercent = 0
	MaxPercent = 100

	VUMeterRows = 2

	MaxScroll = Columns

	// DefaultSpeed is the scroll delay the firmware starts with
	DefaultSpeed = 80

	// Default position used by Timed when none is given
	DefaultTextColumn = 5
	DefaultTextRow    = 2
)

// Options controls how an encoded command is handled
type Options struct {
	// RunCommand writes the command to the display when true
	RunCommand bool
	// NewLine appends the carriage return terminator when true
	NewLine bool
}

// DefaultOptions returns the options used when a caller passes none
func DefaultOptions() Options {
	return Options{RunCommand: true, NewLine: true}
}

// Option adjusts Options for a single call
type Option func(*Options)

// NoRun only encodes the command, without writing it
func NoRun() Option {
	return func(o *Options) { o.RunCommand = false }
}

// NoNewLine omits the trailing terminator
func NoNewLine() Option {
	return func(o *Options) { o.NewLine = false }
}

// WithOptions replaces the options wholesale
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
