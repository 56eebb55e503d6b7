package http

import (
	"net/http"
	"strings"

	"wealthtrack/internal/auth"
	"wealthtrack/internal/log"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// requireAuth resolves the bearer token of every /api request except
// registration and login and puts the caller's id into the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			UnauthorizedError("not authenticated").Write(w)
			return
		}
		user, err := s.svc.Auth.UserForToken(r.Context(), token)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Bearer token rejected", log.FieldError, err)
			UnauthorizedError("could not validate credentials").Write(w)
			return
		}

		ctx := auth.WithUser(r.Context(), user.ID)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID.String()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	user, err := s.svc.Auth.Register(ctx, req.Email, req.FullName, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.created(w, user)
}

// handleLogin accepts the OAuth2 password form (username, password) or a
// JSON body with email and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.fail(w, r, badRequest("request body is neither JSON nor a form"))
		return
	}

	email := parser.Get("email")
	if email == "" {
		email = parser.Get("username")
	}
	password := parser.Get("password")

	var missing []FieldError
	if email == "" {
		missing = append(missing, FieldError{Field: "email", Message: "email is a required field"})
	}
	if password == "" {
		missing = append(missing, FieldError{Field: "password", Message: "password is a required field"})
	}
	if len(missing) > 0 {
		s.fail(w, r, &RequestValidationError{Fields: missing})
		return
	}

	ctx, cancel := withTimeout(r)
	defer cancel()
	token, err := s.svc.Auth.Authenticate(ctx, email, password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFrom(r.Context())
	user, err := s.svc.Auth.Me(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, user)
}
