package pilite

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pilite-service/internal/model"
	"pilite-service/internal/utils"
)

// Timed shows text one character per interval at column,row, clearing the
// display before each character. Spaces leave the previous character up for
// another interval. Zero column or row selects the default position. Timed
// blocks until the text is done or ctx is cancelled.
func (d *Driver) Timed(ctx context.Context, text string, interval time.Duration, column, row int) error {
	if err := ValidateInterval(interval); err != nil {
		return err
	}
	if column == 0 {
		column = DefaultTextColumn
	}
	if row == 0 {
		row = DefaultTextRow
	}

	chars := []rune(text)
	opLog := utils.NewOperationLogger(d.logger.Logger, "timed_text", uuid.NewString())
	opLog.Start(zap.Int("characters", len(chars)), zap.Duration("interval", interval))

	ticker := d.getClock().NewTicker(interval)
	defer ticker.Stop()

	for i, ch := range chars {
		select {
		case <-ctx.Done():
			opLog.Cancelled(ctx.Err())
			return ctx.Err()
		case <-ticker.Chan():
		}

		if ch != ' ' {
			if _, err := d.Clear(ctx); err != nil {
				opLog.Error(err)
				return err
			}
			if _, err := d.Text(ctx, column, row, string(ch)); err != nil {
				opLog.Error(err)
				return err
			}
		}

		opLog.Progress("Character shown", float64(i+1)/float64(len(chars)))
	}

	opLog.Success()
	return nil
}

// RandomPixel toggles a random pixel every interval until ctx is cancelled.
// It always returns a non-nil error: ctx.Err() or the failed write.
func (d *Driver) RandomPixel(ctx context.Context, interval time.Duration) error {
	if err := ValidateInterval(interval); err != nil {
		return err
	}

	opLog := utils.NewOperationLogger(d.logger.Logger, "random_pixel", uuid.NewString())
	opLog.Start(zap.Duration("interval", interval))

	ticker := d.getClock().NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			opLog.Cancelled(ctx.Err())
			return ctx.Err()
		case <-ticker.Chan():
		}

		column := rand.Intn(Columns) + 1
		row := rand.Intn(Rows) + 1
		if _, err := d.Pixel(ctx, column, row, model.PixelToggle); err != nil {
			opLog.Error(err)
			return err
		}
	}
}

// ValidateInterval checks an animation interval
func ValidateInterval(interval time.Duration) error {
	if interval <= 0 {
		return newValidationError("interval", interval, "should be positive")
	}
	return nil
}
