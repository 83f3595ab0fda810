package host

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"wallet_go/internal/domain"
)

// Router mounts the bridge endpoint and the native UI endpoints.
func (h *Host) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/bridge", h.handleBridge)

	// native-only settings UI; changes here bypass the app
	r.Route("/ui", func(r chi.Router) {
		r.Use(h.throttleUI)
		r.Get("/currency", h.handleGetCurrency)
		r.Post("/toggle", h.handleToggle)
		r.Post("/currency/{code}", h.handleSetCurrency)
	})

	return r
}

type currencyResponse struct {
	Currency domain.FiatCode `json:"currency"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", slog.Any("error", err))
	}
}

func (h *Host) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currencyResponse{Currency: h.Currency()})
}

func (h *Host) handleToggle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currencyResponse{Currency: h.ToggleCurrency()})
}

func (h *Host) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	code, err := domain.ParseFiatCode(chi.URLParam(r, "code"))
	if err == nil {
		code, err = h.SetCurrency(code)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, currencyResponse{Currency: code})
}

// throttleUI rejects UI taps beyond the limiter with 429.
func (h *Host) throttleUI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.uiLimiter.TryAcquire() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
