package pilite

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"pilite-service/internal/model"
	"pilite-service/internal/protocol"
)

func validateColumn(column int) error {
	if column < 1 || column > Columns {
		return newValidationError("column", column, "should be between 1-14 (inclusive)")
	}
	return nil
}

func validateRow(row int) error {
	if row < 1 || row > Rows {
		return newValidationError("row", row, "should be between 1-9 (inclusive)")
	}
	return nil
}

// roundPercent rounds half away from zero and checks the result is 0-100
func roundPercent(percent float64) (int, error) {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, newValidationError("percentage", percent, "should be between 0-100 (inclusive)")
	}

	rounded := decimal.NewFromFloat(percent).Round(0)
	if rounded.LessThan(decimal.NewFromInt(MinPercent)) || rounded.GreaterThan(decimal.NewFromInt(MaxPercent)) {
		return 0, newValidationError("percentage", percent, "should be between 0-100 (inclusive)")
	}

	return int(rounded.IntPart()), nil
}

func barGraphPayload(column int, percent float64) (string, error) {
	if err := validateColumn(column); err != nil {
		return "", err
	}

	value, err := roundPercent(percent)
	if err != nil {
		return "", err
	}

	return strconv.Itoa(column) + "," + strconv.Itoa(value), nil
}

func pixelPayload(column, row int, action model.PixelAction) (string, error) {
	if err := validateColumn(column); err != nil {
		return "", err
	}
	if err := validateRow(row); err != nil {
		return "", err
	}
	if !action.Valid() {
		return "", newValidationError("action", action, "should be ON, OFF or TOGGLE")
	}

	return strconv.Itoa(column) + "," + strconv.Itoa(row) + "," + string(action), nil
}

// DeliveryStatusFor classifies the outcome of a write
func DeliveryStatusFor(err error) model.DeliveryStatus {
	switch {
	case err == nil:
		return model.DeliverySent
	case errors.Is(err, protocol.ErrNotConnected):
		return model.DeliveryDropped
	default:
		return model.DeliveryFailed
	}
}

// send writes raw and reports each command it carries
func (d *Driver) send(ctx context.Context, raw string, cmds ...model.Command) error {
	err := protocol.ErrNotConnected
	if d.writer != nil {
		err = d.writer.Write(ctx, raw)
	}

	status := DeliveryStatusFor(err)
	d.logger.LogCommand(raw, string(status), err)

	d.mutex.RLock()
	handler := d.eventHandler
	d.mutex.RUnlock()

	if handler != nil {
		for _, cmd := range cmds {
			handler.OnCommand(cmd, status, err)
		}
	}

	if err != nil {
		return &TransportError{Command: raw, Err: err}
	}
	return nil
}
