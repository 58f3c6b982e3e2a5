package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/auth"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
)

// Server exposes the credential endpoints. Game traffic never goes through
// here; it lives on the websocket.
type Server struct {
	auth *auth.Service
	cat  *msgcat.Catalog
}

func NewServer(authSvc *auth.Service, cat *msgcat.Catalog) *Server {
	return &Server{auth: authSvc, cat: cat}
}

// Router mounts the auth endpoints and the websocket handler.
func (s *Server) Router(wsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/me", s.handleMe).Methods(http.MethodGet)
	r.Handle("/ws", wsHandler)
	return r
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "auth.missing_fields")
		return
	}
	token, ident, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		s.writeError(w, http.StatusBadRequest, "auth.missing_fields")
		return
	case errors.Is(err, auth.ErrUserExists):
		s.writeError(w, http.StatusConflict, "auth.user_exists")
		return
	case err != nil:
		obslog.L().Error("auth_register_error", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{
		Token: token,
		User:  userResponse{ID: ident.UserID, Username: ident.Username, Email: req.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "auth.missing_fields")
		return
	}
	token, ident, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		s.writeError(w, http.StatusUnauthorized, "auth.bad_credentials")
		return
	}
	if err != nil {
		obslog.L().Error("auth_login_error", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Token: token,
		User:  userResponse{ID: ident.UserID, Username: ident.Username, Email: req.Email},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ident, err := s.auth.Verify(r.Header.Get("Authorization"))
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "auth.invalid_token")
		return
	}
	u, err := s.auth.Me(r.Context(), ident)
	if err != nil || u == nil {
		s.writeError(w, http.StatusUnauthorized, "auth.invalid_token")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (s *Server) writeError(w http.ResponseWriter, status int, key string) {
	writeJSON(w, status, map[string]string{"message": s.cat.Text(key, http.StatusText(status))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
