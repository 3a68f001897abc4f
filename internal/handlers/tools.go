package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// ToolsHandler serves the QR code and health routes.
type ToolsHandler struct {
	deps *Dependencies
	log  zerolog.Logger
}

// NewToolsHandler creates a new ToolsHandler.
func NewToolsHandler(deps *Dependencies) *ToolsHandler {
	return &ToolsHandler{deps: deps, log: deps.Log.With().Str("component", "tools").Logger()}
}

// QRCode renders DASHBOARD_URL as a PNG for opening the dashboard on a phone.
func (h *ToolsHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	if h.deps.DashboardURL == "" {
		http.NotFound(w, r)
		return
	}

	png, err := qrcode.Encode(h.deps.DashboardURL, qrcode.Medium, qrSize)
	if err != nil {
		h.log.Error().Err(err).Msg("Creating QR code")
		http.Error(w, "QR code not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// Health returns the server health status.
func (h *ToolsHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, map[string]string{"status": "ok"})
}
