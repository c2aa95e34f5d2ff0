package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"backdrop/internal/http/handlers"
	"backdrop/internal/middleware"
)

// NewRouter wires the HTTP surface. Session resolution runs for every
// request; individual handlers decide whether authentication is required.
func NewRouter(app *handlers.App, resolver middleware.SessionResolver, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSAllowedOrigins),
		middleware.Locale("en", lookup),
		middleware.SessionAuth(resolver, app.Config.Production()),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/signup", app.Signup)
		r.Post("/login", app.Login)
		r.Post("/logout", app.Logout)
		r.Get("/verify", app.Verify)
		r.Post("/resend-verification", app.ResendVerification)
	})

	r.Get("/v1/user/status", app.UserStatus)
	r.Post("/v1/remove-background", app.RemoveBackground)

	return r
}
