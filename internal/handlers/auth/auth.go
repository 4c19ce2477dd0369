package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gchalakovmmi/PulpuWEB/auth"
	"github.com/jackc/pgx/v5"

	"Flywheel/internal/db"
)

type AuthHandler struct {
	googleAuth *auth.GoogleAuth
	allowed    []string
}

// NewAuthHandler admits the listed addresses; entries starting with "@"
// admit a whole domain.
func NewAuthHandler(googleAuth *auth.GoogleAuth, allowed []string) *AuthHandler {
	return &AuthHandler{
		googleAuth: googleAuth,
		allowed:    allowed,
	}
}

// Allowed reports whether email belongs to a staff member.
func (h *AuthHandler) Allowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range h.allowed {
		a = strings.ToLower(a)
		if strings.HasPrefix(a, "@") && strings.HasSuffix(email, a) {
			return true
		}
		if email == a {
			return true
		}
	}
	return false
}

func (h *AuthHandler) BeginAuthHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.googleAuth.GetSession(r); err == nil {
		http.Redirect(w, r, "/admin/leads", http.StatusSeeOther)
		return
	}
	h.googleAuth.BeginAuthHandler(w, r)
}

func (h *AuthHandler) AuthCallbackHandlerWithDB(w http.ResponseWriter, r *http.Request, conn *pgx.Conn) {
	user, err := h.googleAuth.CompleteUserAuth(w, r)
	if err != nil {
		http.Error(w, "Authentication failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !h.Allowed(user.Email) {
		log.Printf("Refused staff sign-in for %s", user.Email)
		http.Error(w, "This account is not allowed to access the staff area", http.StatusForbidden)
		return
	}

	if _, err := db.GetOrCreateStaff(conn, user); err != nil {
		http.Error(w, "Failed to process user data: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.googleAuth.StoreSession(w, user); err != nil {
		http.Error(w, "Session creation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin/leads", http.StatusSeeOther)
}

func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.googleAuth.LogoutHandler(w, r)
	h.googleAuth.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
