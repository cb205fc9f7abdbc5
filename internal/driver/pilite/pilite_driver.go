// internal/driver/pilite/pilite_driver.go
package pilite

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"pilite-service/internal/model"
	"pilite-service/internal/utils"
)

// Writer delivers encoded commands to the display
type Writer interface {
	Write(ctx context.Context, command string) error
}

// EventHandler is told about every command handed to the writer
type EventHandler interface {
	OnCommand(cmd model.Command, status model.DeliveryStatus, err error)
}

// Driver encodes Pi-Lite operations and forwards them to a Writer.
// See http://openmicros.org/index.php/articles/94-ciseco-product-documentation/raspberry-pi/280
type Driver struct {
	writer       Writer
	logger       *utils.DeviceLogger
	clock        clockwork.Clock
	eventHandler EventHandler
	mutex        sync.RWMutex
}

// NewDriver creates a driver writing through writer. A nil writer makes
// every transmitted command count as dropped.
func NewDriver(writer Writer, logger *zap.Logger) *Driver {
	return &Driver{
		writer: writer,
		logger: utils.NewDeviceLogger(logger, "pi-lite", "encoder"),
		clock:  clockwork.NewRealClock(),
	}
}

// SetEventHandler registers the handler notified after each write
func (d *Driver) SetEventHandler(handler EventHandler) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.eventHandler = handler
}

// SetClock replaces the clock used by animations
func (d *Driver) SetClock(clock clockwork.Clock) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.clock = clock
}

func (d *Driver) getClock() clockwork.Clock {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.clock
}

// SetSpeed sets the scrolling delay in ms. 1 scrolls very fast, 1000 very
// slow; the firmware default is 80.
func (d *Driver) SetSpeed(ctx context.Context, value int, opts ...Option) (string, error) {
	return d.process(ctx, model.CodeSpeed, strconv.Itoa(value), opts)
}

// FrameBuffer sets every LED in one go from a 126 character string of
// ones and zeros, column by column.
func (d *Driver) FrameBuffer(ctx context.Context, bits string, opts ...Option) (string, error) {
	if n := utf8.RuneCountInString(bits); n != FrameBufferLength {
		return "", newValidationError("frame buffer length", n, "should be 126 characters long")
	}
	if i := strings.IndexFunc(bits, func(r rune) bool { return r != '0' && r != '1' }); i >= 0 {
		return "", newValidationError("frame buffer", bits, "should only contain zeros and ones")
	}

	return d.process(ctx, model.CodeFrameBuffer, bits, opts)
}

// BarGraph sets a column to a percentage
func (d *Driver) BarGraph(ctx context.Context, column int, percent float64, opts ...Option) (string, error) {
	payload, err := barGraphPayload(column, percent)
	if err != nil {
		return "", err
	}

	return d.process(ctx, model.CodeBarGraph, payload, opts)
}

// Chart draws one bar per value, first value in column 1. It stops at the
// first invalid value; bars already sent stay on the display.
func (d *Driver) Chart(ctx context.Context, percents []float64, opts ...Option) (string, error) {
	var sb strings.Builder

	for i, percent := range percents {
		cmd, err := d.BarGraph(ctx, i+1, percent, opts...)
		sb.WriteString(cmd)
		if err != nil {
			return sb.String(), err
		}
	}

	return sb.String(), nil
}

// VUMeter draws a horizontal bar graph on row 1 or 2
func (d *Driver) VUMeter(ctx context.Context, row int, percent float64, opts ...Option) (string, error) {
	if row < 1 || row > VUMeterRows {
		return "", newValidationError("row", row, "should be between 1-2 (inclusive)")
	}

	value, err := roundPercent(percent)
	if err != nil {
		return "", err
	}

	return d.process(ctx, model.CodeVUMeter, strconv.Itoa(row)+","+strconv.Itoa(value), opts)
}

// Pixel sets a single LED. TOGGLE flips its current state.
func (d *Driver) Pixel(ctx context.Context, column, row int, action model.PixelAction, opts ...Option) (string, error) {
	payload, err := pixelPayload(column, row, action)
	if err != nil {
		return "", err
	}

	return d.process(ctx, model.CodePixel, payload, opts)
}

// All sets every pixel to state, usually ON or OFF
func (d *Driver) All(ctx context.Context, state string, opts ...Option) (string, error) {
	return d.process(ctx, model.CodeAll, ","+state, opts)
}

// Clear turns all pixels off
func (d *Driver) Clear(ctx context.Context, opts ...Option) (string, error) {
	return d.All(ctx, string(model.PixelOff), opts...)
}

// Scroll moves the display n columns left (positive) or right (negative)
func (d *Driver) Scroll(ctx context.Context, n int, opts ...Option) (string, error) {
	if n < -MaxScroll || n > MaxScroll || n == 0 {
		return "", newValidationError("scroll", n, "should be between -14 and 14 but not zero (inclusive)")
	}

	return d.process(ctx, model.CodeScroll, strconv.Itoa(n), opts)
}

// Text shows a character at column,row. Position and character are passed
// through as given.
func (d *Driver) Text(ctx context.Context, column, row int, char string, opts ...Option) (string, error) {
	return d.process(ctx, model.CodeText, strconv.Itoa(column)+","+strconv.Itoa(row)+","+char, opts)
}

// RowBuffer sets the pixels of one row from a pattern: '1' on, '-' left
// unchanged, anything else off. The pixel commands are written as one batch.
func (d *Driver) RowBuffer(ctx context.Context, row int, pattern string, opts ...Option) (string, error) {
	return d.buffer(ctx, pattern, opts, func(i int) (int, int) { return i + 1, row })
}

// ColBuffer is RowBuffer for a single column, top to bottom
func (d *Driver) ColBuffer(ctx context.Context, column int, pattern string, opts ...Option) (string, error) {
	return d.buffer(ctx, pattern, opts, func(i int) (int, int) { return column, i + 1 })
}

func (d *Driver) buffer(ctx context.Context, pattern string, opts []Option, position func(i int) (int, int)) (string, error) {
	o := buildOptions(opts)

	var cmds []model.Command
	var sb strings.Builder

	for i, ch := range []rune(pattern) {
		if ch == '-' {
			continue
		}

		action := model.PixelOff
		if ch == '1' {
			action = model.PixelOn
		}

		column, row := position(i)
		payload, err := pixelPayload(column, row, action)
		if err != nil {
			return "", err
		}

		cmd := model.NewCommand(model.CodePixel, payload, o.NewLine)
		cmds = append(cmds, cmd)
		sb.WriteString(cmd.String())
	}

	batch := sb.String()
	if o.RunCommand && len(cmds) > 0 {
		if err := d.send(ctx, batch, cmds...); err != nil {
			return batch, err
		}
	}

	return batch, nil
}

// process encodes one command and writes it unless RunCommand is off
func (d *Driver) process(ctx context.Context, code model.CommandCode, payload string, opts []Option) (string, error) {
	o := buildOptions(opts)
	cmd := model.NewCommand(code, payload, o.NewLine)
	raw := cmd.String()

	if o.RunCommand {
		if err := d.send(ctx, raw, cmd); err != nil {
			return raw, err
		}
	}

	return raw, nil
}
