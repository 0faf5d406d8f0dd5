package http

import (
	"errors"
	"log/slog"
	"net/http"

	"subtrack/internal/auth"
	"subtrack/internal/core"
)

type authPageData struct {
	Error string
	Name  string
	Email string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "login.html", authPageData{})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "register.html", authPageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		slog.WarnContext(r.Context(), "Login failed", "email", email)
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, r, "login.html", authPageData{
			Error: "Invalid email or password",
			Email: email,
		})
		return
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue session", "error", err, "user_id", user.ID)
		InternalServerError("Could not start session").Write(w)
		return
	}

	s.setSessionCookie(w, token)
	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, err := s.auth.Register(r.Context(), name, email, password)
	if err != nil {
		msg := "Could not create the account"
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			msg = "Password must be at least 8 characters"
		case errors.Is(err, auth.ErrEmailExists):
			msg = "That email is already registered"
		case errors.Is(err, core.ErrInvalidEmail):
			msg = "That email address does not look valid"
		case errors.Is(err, core.ErrEmptyUserName):
			msg = "Name is required"
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "register.html", authPageData{Error: msg, Name: name, Email: email})
		return
	}

	token, err := s.sessions.Issue(user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue session after registration",
			"error", err, "user_id", user.ID)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
