package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AllowedOrigins []string
	// FilesBaseURL is where legacy /files/* links are redirected.
	FilesBaseURL string
	HealthCheck  func(ctx context.Context) error
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAnyOrigin(opts.AllowedOrigins),
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.HealthCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.HealthCheck(ctx); err != nil {
				writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", "dependency check failed")
				return
			}
		}
		writeJSON(w, http.StatusOK, "ok", nil)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/files/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", opts.FilesBaseURL+"/")
		w.WriteHeader(http.StatusMovedPermanently)
		_, _ = w.Write([]byte("Files are now served from object storage"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.HandleRegister)
			r.Post("/login", h.HandleLogin)
			r.Post("/verify-email", h.HandleVerifyEmail)
			r.Post("/resend-verification", h.HandleResendVerification)
			r.Post("/logout", h.HandleLogout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(RequireAuth)
			r.Get("/profile", h.HandleGetProfile)
			r.Patch("/profile", h.HandleUpdateProfile)
		})
	})

	return r
}

// Browsers reject credentialed CORS responses for a wildcard origin.
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
