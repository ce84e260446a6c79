package api

import (
	"net/http"
	"time"

	"finengine/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

// RequestRecorder receives per-request measurements. A nil recorder is valid.
type RequestRecorder interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
}

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler, allowedOrigins []string, recorder RequestRecorder) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(recorder))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", AdminHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.UpsertProduct)
		})

		r.Route("/investments", func(r chi.Router) {
			r.Get("/", h.ListInvestments)
			r.Post("/", h.CreateInvestment)
			r.Get("/{id}", h.GetInvestment)
			r.Post("/{id}/{action}", h.ExecuteAction(models.EntityTypeInvestment))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", h.ListWithdrawals)
			r.Post("/", h.CreateWithdrawal)
			r.Get("/{id}", h.GetWithdrawal)
			r.Post("/{id}/{action}", h.ExecuteAction(models.EntityTypeWithdrawal))
		})

		r.Route("/prizes", func(r chi.Router) {
			r.Get("/", h.ListPrizes)
			r.Put("/", h.UpsertPrize)
			r.Delete("/{id}", h.DeletePrize)
		})

		r.Route("/spins", func(r chi.Router) {
			r.Post("/", h.DrawSpin)
			r.Get("/{id}", h.GetSpinResult)
			r.Post("/{id}/{action}", h.ExecuteAction(models.EntityTypeSpinResult))
		})

		r.Get("/reports/daily", h.DailyReport)
		r.Get("/actions/{entityType}/{status}", h.AllowedActions)
	})

	return r
}

// requestLogger logs each request with logrus and reports it to recorder
// under its route pattern
func requestLogger(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			entry := log.WithFields(log.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"duration":   duration,
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("Request completed with server error")
			} else {
				entry.Debug("Request completed")
			}

			if recorder != nil {
				recorder.RecordHTTPRequest(route, r.Method, status, duration)
			}
		})
	}
}
