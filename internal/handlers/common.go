package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "kitefolio/internal/errors"
	"kitefolio/internal/services"
	"kitefolio/web"
)

// TemplateFuncs are the helpers available to every page.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"inr":       services.FormatINR,
		"signedPct": services.FormatSignedPct,
		"fixed": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		// sign returns the CSS class for a gain or loss.
		"sign": func(d decimal.Decimal) string {
			switch {
			case d.IsPositive():
				return "gain"
			case d.IsNegative():
				return "loss"
			default:
				return ""
			}
		},
	}
}

// render renders a page template with the given data and status.
func render(w http.ResponseWriter, log zerolog.Logger, templates web.TemplateCache, name string, status int, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}

	tmpl, ok := templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Error rendering template")
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// reason is the message shown to the viewer for a failed fetch. Causes stay in the log.
func reason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "unexpected error"
}
