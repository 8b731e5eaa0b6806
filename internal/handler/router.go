package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/converge-shop/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)
	// promhttp сжимает ответ сам
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)

		r.Get("/login", h.Login)

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   h.opts.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
				ExposedHeaders:   []string{"Content-Disposition"},
				AllowCredentials: true,
				MaxAge:           300,
			}))

			r.Get("/slack-callback", h.SlackCallback)
			r.Post("/logout", h.Logout)
			r.With(custommiddleware.AdminKey(h.opts.AdminKey)).Post("/import-shop", h.ImportShop)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/user", h.GetUser)
				r.Get("/shop/items", h.GetItems)
				r.Post("/order", h.PlaceOrder)
				r.Get("/orders", h.GetOrders)

				r.Route("/admin", func(r chi.Router) {
					r.Use(custommiddleware.RequireAdmin)

					r.Get("/items", h.AdminItems)
					r.Get("/users", h.AdminUsers)
					r.Get("/orders", h.AdminOrders)
					r.Patch("/orders", h.UpdateOrder)
					r.Get("/orders/export", h.ExportOrders)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
