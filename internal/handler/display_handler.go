// internal/handler/display_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pilite-service/internal/driver/pilite"
	"pilite-service/internal/model"
	"pilite-service/internal/repository"
	"pilite-service/internal/service"
	"pilite-service/internal/utils"
)

// DisplayHandler exposes the display operations over HTTP
type DisplayHandler struct {
	displayService *service.DisplayService
	logger         *utils.ServiceLogger
}

// NewDisplayHandler creates a new display handler
func NewDisplayHandler(displayService *service.DisplayService, logger *zap.Logger) *DisplayHandler {
	return &DisplayHandler{
		displayService: displayService,
		logger:         utils.NewServiceLogger(logger, "display-handler"),
	}
}

// RegisterRoutes registers display routes
func (h *DisplayHandler) RegisterRoutes(router *gin.RouterGroup) {
	display := router.Group("/display")
	{
		display.POST("/speed", h.SetSpeed)
		display.POST("/frame", h.FrameBuffer)
		display.POST("/bar", h.BarGraph)
		display.POST("/chart", h.Chart)
		display.POST("/vu", h.VUMeter)
		display.POST("/pixel", h.Pixel)
		display.POST("/all", h.All)
		display.POST("/clear", h.Clear)
		display.POST("/scroll", h.Scroll)
		display.POST("/text", h.Text)
		display.POST("/row", h.RowBuffer)
		display.POST("/column", h.ColBuffer)

		display.POST("/timed", h.StartTimed)
		display.POST("/random", h.StartRandomPixel)
		display.GET("/animation", h.GetAnimation)
		display.DELETE("/animation", h.StopAnimation)

		display.POST("/connect", h.Connect)
		display.GET("/history", h.ListHistory)
		display.GET("/history/:id", h.GetHistoryRecord)
		display.GET("/ports", h.ListPorts)
	}
}

// SetSpeed handles POST /display/speed
func (h *DisplayHandler) SetSpeed(c *gin.Context) {
	var req SpeedRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().SetSpeed(c.Request.Context(), *req.Value, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// FrameBuffer handles POST /display/frame
func (h *DisplayHandler) FrameBuffer(c *gin.Context) {
	var req FrameRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().FrameBuffer(c.Request.Context(), req.Bits, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// BarGraph handles POST /display/bar
func (h *DisplayHandler) BarGraph(c *gin.Context) {
	var req BarRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().BarGraph(c.Request.Context(), req.Column, req.Percent, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// Chart handles POST /display/chart
func (h *DisplayHandler) Chart(c *gin.Context) {
	var req ChartRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().Chart(c.Request.Context(), req.Percents, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// VUMeter handles POST /display/vu
func (h *DisplayHandler) VUMeter(c *gin.Context) {
	var req VURequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().VUMeter(c.Request.Context(), req.Row, req.Percent, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// Pixel handles POST /display/pixel
func (h *DisplayHandler) Pixel(c *gin.Context) {
	var req PixelRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().Pixel(c.Request.Context(), req.Column, req.Row, model.PixelAction(req.Action), req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// All handles POST /display/all
func (h *DisplayHandler) All(c *gin.Context) {
	var req AllRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().All(c.Request.Context(), req.State, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// Clear handles POST /display/clear. The body is optional.
func (h *DisplayHandler) Clear(c *gin.Context) {
	var req CommandOptions
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	cmd, err := h.displayService.Driver().Clear(c.Request.Context(), req.options()...)
	h.respond(c, cmd, err, req)
}

// Scroll handles POST /display/scroll
func (h *DisplayHandler) Scroll(c *gin.Context) {
	var req ScrollRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().Scroll(c.Request.Context(), req.Columns, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// Text handles POST /display/text
func (h *DisplayHandler) Text(c *gin.Context) {
	var req TextRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().Text(c.Request.Context(), req.Column, req.Row, req.Char, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// RowBuffer handles POST /display/row
func (h *DisplayHandler) RowBuffer(c *gin.Context) {
	var req RowRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().RowBuffer(c.Request.Context(), req.Row, req.Pattern, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// ColBuffer handles POST /display/column
func (h *DisplayHandler) ColBuffer(c *gin.Context) {
	var req ColumnRequest
	if !h.bind(c, &req) {
		return
	}

	cmd, err := h.displayService.Driver().ColBuffer(c.Request.Context(), req.Column, req.Pattern, req.options()...)
	h.respond(c, cmd, err, req.CommandOptions)
}

// StartTimed handles POST /display/timed
func (h *DisplayHandler) StartTimed(c *gin.Context) {
	var req TimedRequest
	if !h.bind(c, &req) {
		return
	}

	status, err := h.displayService.StartTimed(req.Text, time.Duration(req.IntervalMs)*time.Millisecond, req.Column, req.Row)
	if err != nil {
		h.respondError(c, "", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Animation started", status)
}

// StartRandomPixel handles POST /display/random
func (h *DisplayHandler) StartRandomPixel(c *gin.Context) {
	var req RandomRequest
	if !h.bind(c, &req) {
		return
	}

	status, err := h.displayService.StartRandomPixel(time.Duration(req.IntervalMs) * time.Millisecond)
	if err != nil {
		h.respondError(c, "", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Animation started", status)
}

// GetAnimation handles GET /display/animation
func (h *DisplayHandler) GetAnimation(c *gin.Context) {
	status := h.displayService.CurrentAnimation()
	if status == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "No animation running", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Animation running", status)
}

// StopAnimation handles DELETE /display/animation
func (h *DisplayHandler) StopAnimation(c *gin.Context) {
	if !h.displayService.StopAnimation() {
		utils.ErrorResponse(c, http.StatusNotFound, "No animation running", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Animation stopped", nil)
}

// Connect handles POST /display/connect
func (h *DisplayHandler) Connect(c *gin.Context) {
	if err := h.displayService.Connect(c.Request.Context()); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to connect to display", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Display connected", gin.H{"connected": true})
}

// ListHistory handles GET /display/history
func (h *DisplayHandler) ListHistory(c *gin.Context) {
	filter := &repository.HistoryFilter{}

	if code := c.Query("code"); code != "" {
		cc := model.CommandCode(code)
		filter.Code = &cc
	}
	if status := c.Query("status"); status != "" {
		ds := model.DeliveryStatus(status)
		filter.Status = &ds
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			utils.ValidationErrorResponse(c, "since", err, nil)
			return
		}
		filter.StartDate = &t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			utils.ValidationErrorResponse(c, "until", err, nil)
			return
		}
		filter.EndDate = &t
	}
	if page := c.Query("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			utils.ValidationErrorResponse(c, "page", err, nil)
			return
		}
		filter.Page = n
	}
	if perPage := c.Query("per_page"); perPage != "" {
		n, err := strconv.Atoi(perPage)
		if err != nil {
			utils.ValidationErrorResponse(c, "per_page", err, nil)
			return
		}
		filter.PerPage = n
	}
	filter.Normalize()

	records, total, err := h.displayService.ListHistory(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			utils.ErrorResponse(c, http.StatusNotFound, "Command history is disabled", err)
			return
		}
		h.logger.Error("Failed to list command history", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list command history", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command history retrieved", HistoryResponse{
		Records: records,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	})
}

// GetHistoryRecord handles GET /display/history/:id
func (h *DisplayHandler) GetHistoryRecord(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ValidationErrorResponse(c, "id", err, nil)
		return
	}

	record, err := h.displayService.GetHistoryRecord(c.Request.Context(), id)
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		utils.ErrorResponse(c, http.StatusNotFound, "Command history is disabled", err)
	case errors.Is(err, repository.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Command record not found", err)
	case err != nil:
		h.logger.Error("Failed to get command record", zap.Error(err), zap.String("id", id.String()))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get command record", err)
	default:
		utils.SuccessResponse(c, http.StatusOK, "Command record retrieved", record)
	}
}

// ListPorts handles GET /display/ports
func (h *DisplayHandler) ListPorts(c *gin.Context) {
	ports, err := h.displayService.ListPorts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Serial ports retrieved", ports)
}

func (h *DisplayHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// respond maps the driver result onto the response envelope
func (h *DisplayHandler) respond(c *gin.Context, cmd string, err error, opts CommandOptions) {
	if err != nil {
		h.respondError(c, cmd, err)
		return
	}

	sent := opts.RunCommand == nil || *opts.RunCommand
	utils.SuccessResponse(c, http.StatusOK, "Command encoded", CommandResponse{Command: cmd, Sent: sent})
}

func (h *DisplayHandler) respondError(c *gin.Context, cmd string, err error) {
	var data interface{}
	if cmd != "" {
		data = CommandResponse{Command: cmd}
	}

	var validationErr *pilite.ValidationError
	var transportErr *pilite.TransportError

	switch {
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, validationErr.Field, err, data)
	case errors.As(err, &transportErr):
		utils.ErrorResponseWithData(c, http.StatusBadGateway, "Command not delivered to display", err, data)
	default:
		h.logger.Error("Display operation failed", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Display operation failed", err)
	}
}
