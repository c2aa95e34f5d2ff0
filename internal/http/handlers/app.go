package handlers

import (
	"encoding/json"
	"net/http"

	"backdrop/internal/auth"
	"backdrop/internal/domain"
	"backdrop/internal/infra"
	"backdrop/internal/mail"
	"backdrop/internal/middleware"
	"backdrop/internal/quota"
	"backdrop/internal/removal"
)

// App bundles the dependencies handlers need. Everything is constructed
// once in main and injected here; handlers never read ambient state.
type App struct {
	SQL      infra.SQLExecutor
	Logger   infra.Logger
	Config   *infra.Config
	Sessions *auth.Sessions
	Quota    *quota.Ledger
	Remover  *removal.Orchestrator
	Mailer   *mail.Sender
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// fail maps a typed error onto the HTTP contract. The stable kind is the
// machine-readable field; the message is localized where a translation
// exists. Internal detail is logged, never surfaced.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	message := domain.MessageOf(err)
	if kind == domain.KindInternal || kind == domain.KindServiceUnconfigured {
		a.Logger.Error().Err(err).Str("kind", string(kind)).Msg("request failed")
	}
	locale := middleware.LocaleFromContext(r.Context())
	a.error(w, statusForKind(kind), string(kind), localizeMessage(locale, kind, message))
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbiddenTier:
		return http.StatusForbidden
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindServiceUnconfigured, domain.KindUpstreamRateLimited, domain.KindUpstreamBilling:
		return http.StatusServiceUnavailable
	case domain.KindUpstreamAuth, domain.KindUpstreamModel, domain.KindUpstreamFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// currentAuth returns the authenticated identity or nil.
func (a *App) currentAuth(r *http.Request) *domain.AuthContext {
	return middleware.AuthFromContext(r.Context())
}

// requireAuth writes the unauthenticated error when no session is present.
func (a *App) requireAuth(w http.ResponseWriter, r *http.Request) *domain.AuthContext {
	ac := a.currentAuth(r)
	if ac == nil {
		a.fail(w, r, domain.E(domain.KindUnauthenticated, "please log in to continue"))
		return nil
	}
	return ac
}
