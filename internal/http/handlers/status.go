package handlers

import (
	"net/http"

	"backdrop/internal/domain"
)

type usageDTO struct {
	CurrentMonth int    `json:"current_month"`
	MaxUsage     int    `json:"max_usage"`
	Remaining    int    `json:"remaining"`
	Month        string `json:"month"`
}

type userStatusResponse struct {
	IsLoggedIn bool       `json:"is_logged_in"`
	User       profileDTO `json:"user"`
	Usage      usageDTO   `json:"usage"`
}

// UserStatus reports the caller's profile and this month's usage. The
// usage numbers are display-only; authorization happens at job time.
func (a *App) UserStatus(w http.ResponseWriter, r *http.Request) {
	ac := a.requireAuth(w, r)
	if ac == nil {
		return
	}

	st, err := a.Quota.Remaining(r.Context(), ac, domain.ActionBackgroundRemoval)
	if err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "failed to load usage", err))
		return
	}

	a.json(w, http.StatusOK, userStatusResponse{
		IsLoggedIn: true,
		User: profileDTO{
			ID:       ac.UserID,
			Email:    ac.Email,
			Name:     ac.Name,
			Tier:     string(ac.Tier),
			Verified: ac.Verified,
		},
		Usage: usageDTO{
			CurrentMonth: st.Used,
			MaxUsage:     st.Max,
			Remaining:    st.Remaining,
			Month:        st.Month,
		},
	})
}
