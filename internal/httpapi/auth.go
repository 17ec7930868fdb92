package httpapi

import (
	"net/http"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req goCred.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.Register(r.Context(), req)
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	writeJSON(w, http.StatusOK, s.engine.Logout(r.Context(), p.UserID))
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	u, err := s.engine.GetUser(r.Context(), p.UserID)
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req goCred.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	u, err := s.engine.UpdateProfile(r.Context(), p.UserID, req)
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
