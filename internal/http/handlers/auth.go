package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"backdrop/internal/auth"
	"backdrop/internal/domain"
	"backdrop/internal/infra"
	"backdrop/internal/middleware"
	"backdrop/internal/sqlinline"
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signupResponse struct {
	Success         bool   `json:"success"`
	UserID          int64  `json:"user_id"`
	EmailSent       bool   `json:"email_sent"`
	EmailMode       string `json:"email_mode"`
	VerificationURL string `json:"verification_url,omitempty"`
	Message         string `json:"message,omitempty"`
}

func (a *App) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "invalid payload"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "email, password and name are required"))
		return
	}
	if !emailRegexp.MatchString(req.Email) {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "invalid email format"))
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QUserIDByEmail, req.Email)
	var existingID int64
	if err := row.Scan(&existingID); err == nil {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "this email is already registered"))
		return
	} else if !infra.IsNoRows(err) {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}
	verificationToken, err := randomToken()
	if err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}

	var userID int64
	row = a.SQL.QueryRow(r.Context(), sqlinline.QInsertUser, req.Email, passwordHash, req.Name, verificationToken)
	if err := row.Scan(&userID); err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "failed to create account", err))
		return
	}
	a.Logger.Info().Int64("user_id", userID).Msg("user registered")

	// Mail delivery is best-effort: a provider outage must not block
	// account creation, so the failure is downgraded and the direct
	// verification link returned instead.
	sendResult := a.Mailer.SendVerification(req.Email, verificationToken)
	resp := signupResponse{
		Success:   true,
		UserID:    userID,
		EmailSent: sendResult.Sent,
		EmailMode: sendResult.Mode,
	}
	if !sendResult.Sent || !a.Config.Production() {
		resp.VerificationURL = a.Mailer.VerificationURL(verificationToken)
	}
	if !sendResult.Sent {
		resp.Message = "account created, but the verification email could not be sent; use the link below"
	}
	a.json(w, http.StatusOK, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Tier     string `json:"subscription_tier"`
	Verified bool   `json:"is_verified"`
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "invalid payload"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "email and password are required"))
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserByEmail, req.Email)
	var user domain.User
	var tier string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Verified, &tier, &user.CreatedAt); err != nil {
		if !infra.IsNoRows(err) {
			a.Logger.Error().Err(err).Msg("login lookup failed")
		}
		a.fail(w, r, domain.E(domain.KindUnauthenticated, "invalid email or password"))
		return
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		a.fail(w, r, domain.E(domain.KindUnauthenticated, "invalid email or password"))
		return
	}

	token, expiresAt, err := a.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "failed to create session", err))
		return
	}
	middleware.SetSessionCookie(w, token, expiresAt, a.Config.Production())
	a.json(w, http.StatusOK, profileDTO{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Tier:     tier,
		Verified: user.Verified,
	})
}

func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := a.Sessions.Destroy(r.Context(), c.Value); err != nil {
			a.Logger.Error().Err(err).Msg("session destroy failed")
		}
	}
	middleware.ClearSessionCookie(w, a.Config.Production())
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "verification token is required"))
		return
	}
	row := a.SQL.QueryRow(r.Context(), sqlinline.QVerifyUserByToken, token)
	var userID int64
	if err := row.Scan(&userID); err != nil {
		if infra.IsNoRows(err) {
			a.fail(w, r, domain.E(domain.KindInvalidInput, "invalid or expired verification token"))
			return
		}
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}
	a.Logger.Info().Int64("user_id", userID).Msg("email verified")
	a.json(w, http.StatusOK, map[string]any{"success": true})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (a *App) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "invalid payload"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "email is required"))
		return
	}

	row := a.SQL.QueryRow(r.Context(), sqlinline.QSelectUserForResend, req.Email)
	var userID int64
	var verified bool
	var createdAt time.Time
	if err := row.Scan(&userID, &verified, &createdAt); err != nil {
		if infra.IsNoRows(err) {
			a.fail(w, r, domain.E(domain.KindInvalidInput, "user not found"))
			return
		}
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}
	if verified {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "email is already verified"))
		return
	}
	if time.Since(createdAt) > 24*time.Hour {
		a.fail(w, r, domain.E(domain.KindInvalidInput, "verification window expired, please create a new account"))
		return
	}

	verificationToken, err := randomToken()
	if err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}
	if _, err := a.SQL.Exec(r.Context(), sqlinline.QRotateVerificationToken, req.Email, verificationToken); err != nil {
		a.fail(w, r, domain.Wrap(domain.KindInternal, "internal server error", err))
		return
	}

	sendResult := a.Mailer.SendVerification(req.Email, verificationToken)
	resp := map[string]any{
		"success":    true,
		"email_sent": sendResult.Sent,
		"email_mode": sendResult.Mode,
	}
	if !sendResult.Sent || !a.Config.Production() {
		resp["verification_url"] = a.Mailer.VerificationURL(verificationToken)
	}
	a.json(w, http.StatusOK, resp)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
