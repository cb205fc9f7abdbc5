package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pilite-service/internal/config"
	"pilite-service/internal/driver/pilite"
	"pilite-service/internal/protocol"
	"pilite-service/internal/service"
)

type fakeDisplay struct {
	mu     sync.Mutex
	open   bool
	writes []string
}

func (f *fakeDisplay) Connect(_ context.Context, onReady func()) error {
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	if onReady != nil {
		onReady()
	}
	return nil
}

func (f *fakeDisplay) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeDisplay) Stats() (protocol.ProtocolStats, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return protocol.ProtocolStats{OperationCount: int64(len(f.writes))}, f.open
}

func (f *fakeDisplay) Write(_ context.Context, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return protocol.ErrNotConnected
	}
	f.writes = append(f.writes, command)
	return nil
}

func (f *fakeDisplay) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

type commandData struct {
	Command string `json:"command"`
	Sent    bool   `json:"sent"`
}

func setupDisplayRouter(t *testing.T, open bool) (*gin.Engine, *fakeDisplay, *service.DisplayService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	display := &fakeDisplay{open: open}
	cfg := &config.Config{}
	driver := pilite.NewDriver(display, zap.NewNop())
	svc := service.NewDisplayService(driver, display, nil, nil, nil, cfg, zap.NewNop())
	t.Cleanup(svc.Close)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("request_id", "test-request")
		c.Next()
	})
	NewDisplayHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	return router, display, svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func decodeCommand(t *testing.T, resp apiResponse) commandData {
	t.Helper()
	var data commandData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}

func TestDisplayHandler_Commands(t *testing.T) {
	tests := []struct {
		name string
		path string
		body interface{}
		want string
	}{
		{"speed", "/api/v1/display/speed", gin.H{"value": 50}, "$$$SPEED50\r"},
		{"bar", "/api/v1/display/bar", gin.H{"column": 1, "percent": 93.5}, "$$$B1,94\r"},
		{"chart", "/api/v1/display/chart", gin.H{"percents": []float64{10, 20}}, "$$$B1,10\r$$$B2,20\r"},
		{"vu", "/api/v1/display/vu", gin.H{"row": 2, "percent": 40}, "$$$V2,40\r"},
		{"pixel", "/api/v1/display/pixel", gin.H{"column": 14, "row": 9, "action": "TOGGLE"}, "$$$P14,9,TOGGLE\r"},
		{"all", "/api/v1/display/all", gin.H{"state": "ON"}, "$$$ALL,ON\r"},
		{"scroll", "/api/v1/display/scroll", gin.H{"columns": -2}, "$$$SCROLL-2\r"},
		{"text", "/api/v1/display/text", gin.H{"column": 5, "row": 2, "char": "A"}, "$$$T5,2,A\r"},
		{"row", "/api/v1/display/row", gin.H{"row": 1, "pattern": "1-1"}, "$$$P1,1,ON\r$$$P3,1,ON\r"},
		{"column", "/api/v1/display/column", gin.H{"column": 2, "pattern": "0"}, "$$$P2,1,OFF\r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, display, _ := setupDisplayRouter(t, true)

			w, resp := doJSON(t, router, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.True(t, resp.Success)
			assert.Equal(t, "test-request", resp.RequestID)

			data := decodeCommand(t, resp)
			assert.Equal(t, tt.want, data.Command)
			assert.True(t, data.Sent)
			assert.NotEmpty(t, display.Writes())
		})
	}
}

func TestDisplayHandler_FrameBuffer(t *testing.T) {
	router, _, _ := setupDisplayRouter(t, true)

	bits := bytes.Repeat([]byte("01"), 63)
	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/frame", gin.H{"bits": string(bits)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$$$F"+string(bits)+"\r", decodeCommand(t, resp).Command)

	w, resp = doJSON(t, router, http.MethodPost, "/api/v1/display/frame", gin.H{"bits": "0101"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestDisplayHandler_ValidationErrors(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, true)

	tests := []struct {
		path  string
		body  interface{}
		field string
	}{
		{"/api/v1/display/bar", gin.H{"column": 15, "percent": 50}, "column"},
		{"/api/v1/display/bar", gin.H{"column": 1, "percent": 100.5}, "percentage"},
		{"/api/v1/display/pixel", gin.H{"column": 1, "row": 10, "action": "ON"}, "row"},
		{"/api/v1/display/pixel", gin.H{"column": 1, "row": 1, "action": "BLINK"}, "action"},
		{"/api/v1/display/scroll", gin.H{"columns": 0}, "scroll"},
		{"/api/v1/display/vu", gin.H{"row": 3, "percent": 1}, "row"},
	}

	for _, tt := range tests {
		w, resp := doJSON(t, router, http.MethodPost, tt.path, tt.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.path)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Equal(t, tt.field, resp.Error.Field)
	}

	assert.Empty(t, display.Writes())
}

func TestDisplayHandler_ChartReturnsPartialCommands(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, true)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/chart", gin.H{"percents": []float64{5, 500}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "$$$B1,5\r", decodeCommand(t, resp).Command)
	assert.Equal(t, []string{"$$$B1,5\r"}, display.Writes())
}

func TestDisplayHandler_InvalidBody(t *testing.T) {
	router, _, _ := setupDisplayRouter(t, true)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/text", gin.H{"column": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
}

func TestDisplayHandler_NotConnectedReturns502WithCommand(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, false)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/scroll", gin.H{"columns": 3})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DISPLAY_UNREACHABLE", resp.Error.Code)

	data := decodeCommand(t, resp)
	assert.Equal(t, "$$$SCROLL3\r", data.Command)
	assert.False(t, data.Sent)
	assert.Empty(t, display.Writes())
}

func TestDisplayHandler_RunCommandFalse(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, false)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/speed", gin.H{
		"value":       50,
		"run_command": false,
		"new_line":    false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeCommand(t, resp)
	assert.Equal(t, "$$$SPEED50", data.Command)
	assert.False(t, data.Sent)
	assert.Empty(t, display.Writes())
}

func TestDisplayHandler_ClearWithAndWithoutBody(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, true)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$$$ALL,OFF\r", decodeCommand(t, resp).Command)

	w, resp = doJSON(t, router, http.MethodPost, "/api/v1/display/clear", gin.H{"new_line": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$$$ALL,OFF", decodeCommand(t, resp).Command)

	assert.Equal(t, []string{"$$$ALL,OFF\r", "$$$ALL,OFF"}, display.Writes())
}

func TestDisplayHandler_ClearChunkedBody(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/display/clear", strings.NewReader(`{"new_line":false}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"$$$ALL,OFF"}, display.Writes())

	req = httptest.NewRequest(http.MethodPost, "/api/v1/display/clear", strings.NewReader(`{"new_line":`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, display.Writes(), 1)
}

func TestDisplayHandler_SpeedZero(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, true)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/speed", gin.H{"value": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "$$$SPEED0\r", decodeCommand(t, resp).Command)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/display/speed", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, []string{"$$$SPEED0\r"}, display.Writes())
}

func TestDisplayHandler_Connect(t *testing.T) {
	router, display, _ := setupDisplayRouter(t, false)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/connect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.True(t, display.IsOpen())
}

func TestDisplayHandler_Animations(t *testing.T) {
	router, display, svc := setupDisplayRouter(t, true)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/display/animation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/api/v1/display/random", gin.H{"interval_ms": 1})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, resp.Success)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/display/animation", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.Eventually(t, func() bool { return len(display.Writes()) > 0 }, time.Second, 5*time.Millisecond)

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/display/animation", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.CurrentAnimation())

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/display/animation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = doJSON(t, router, http.MethodPost, "/api/v1/display/timed", gin.H{"text": "ok", "interval_ms": -5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "interval", resp.Error.Field)
}

func TestDisplayHandler_HistoryDisabled(t *testing.T) {
	router, _, _ := setupDisplayRouter(t, true)

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/display/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/display/history?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "page", resp.Error.Field)

	w, resp = doJSON(t, router, http.MethodGet, "/api/v1/display/history?until=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "until", resp.Error.Field)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/display/history/6f1c1c9e-3f7e-4a55-8d0e-0a6c4d1f2b3a", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = doJSON(t, router, http.MethodGet, "/api/v1/display/history/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "id", resp.Error.Field)
}

func TestDisplayHandler_PortsWithoutScanner(t *testing.T) {
	router, _, _ := setupDisplayRouter(t, true)

	w, resp := doJSON(t, router, http.MethodGet, "/api/v1/display/ports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))
}
