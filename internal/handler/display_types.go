// internal/handler/display_types.go
package handler

import "pilite-service/internal/driver/pilite"

// CommandOptions are accepted by every display request
type CommandOptions struct {
	RunCommand *bool `json:"run_command,omitempty"`
	NewLine    *bool `json:"new_line,omitempty"`
}

func (o CommandOptions) options() []pilite.Option {
	var opts []pilite.Option
	if o.RunCommand != nil && !*o.RunCommand {
		opts = append(opts, pilite.NoRun())
	}
	if o.NewLine != nil && !*o.NewLine {
		opts = append(opts, pilite.NoNewLine())
	}
	return opts
}

// SpeedRequest sets the scroll delay in ms
type SpeedRequest struct {
	CommandOptions
	Value *int `json:"value" binding:"required"`
}

// FrameRequest sets the whole grid
type FrameRequest struct {
	CommandOptions
	Bits string `json:"bits" binding:"required"`
}

// BarRequest sets one column to a percentage
type BarRequest struct {
	CommandOptions
	Column  int     `json:"column"`
	Percent float64 `json:"percent"`
}

// ChartRequest draws one bar per value
type ChartRequest struct {
	CommandOptions
	Percents []float64 `json:"percents"`
}

// VURequest draws a horizontal bar on row 1 or 2
type VURequest struct {
	CommandOptions
	Row     int     `json:"row"`
	Percent float64 `json:"percent"`
}

// PixelRequest sets one LED
type PixelRequest struct {
	CommandOptions
	Column int    `json:"column"`
	Row    int    `json:"row"`
	Action string `json:"action" binding:"required"`
}

// AllRequest sets every LED
type AllRequest struct {
	CommandOptions
	State string `json:"state" binding:"required"`
}

// ScrollRequest scrolls the display
type ScrollRequest struct {
	CommandOptions
	Columns int `json:"columns"`
}

// TextRequest shows a character
type TextRequest struct {
	CommandOptions
	Column int    `json:"column"`
	Row    int    `json:"row"`
	Char   string `json:"char" binding:"required"`
}

// RowRequest sets a row from a pattern
type RowRequest struct {
	CommandOptions
	Row     int    `json:"row"`
	Pattern string `json:"pattern" binding:"required"`
}

// ColumnRequest sets a column from a pattern
type ColumnRequest struct {
	CommandOptions
	Column  int    `json:"column"`
	Pattern string `json:"pattern" binding:"required"`
}

// TimedRequest starts a character-by-character text animation
type TimedRequest struct {
	Text       string `json:"text" binding:"required"`
	IntervalMs int    `json:"interval_ms" binding:"required"`
	Column     int    `json:"column"`
	Row        int    `json:"row"`
}

// RandomRequest starts the random pixel animation
type RandomRequest struct {
	IntervalMs int `json:"interval_ms" binding:"required"`
}

// CommandResponse carries the encoded command
type CommandResponse struct {
	Command string `json:"command"`
	Sent    bool   `json:"sent"`
}

// HistoryResponse is a page of recorded commands
type HistoryResponse struct {
	Records interface{} `json:"records"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}
