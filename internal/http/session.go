package http

import (
	"context"
	"log/slog"
	"net/http"

	"subtrack/internal/auth"
)

type sessionContextKey string

const claimsKey sessionContextKey = "session_claims"

// requireAuth validates the session cookie and stores the claims in the
// request context. Browsers get redirected to the login page; HTMX
// partial requests get a 401 with an HX-Redirect header so the client
// swaps the whole page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookie)
		if err != nil {
			s.denyUnauthenticated(w, r, auth.ErrMissingToken)
			return
		}

		claims, err := s.sessions.Validate(cookie.Value)
		if err != nil {
			s.clearSessionCookie(w)
			s.denyUnauthenticated(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) denyUnauthenticated(w http.ResponseWriter, r *http.Request, err error) {
	slog.DebugContext(r.Context(), "Unauthenticated request",
		"path", r.URL.Path, "reason", err)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// sessionClaims returns the claims stored by requireAuth.
func sessionClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// currentUserID returns the authenticated user's ID, or "" outside a
// protected handler.
func currentUserID(ctx context.Context) string {
	if claims := sessionClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
