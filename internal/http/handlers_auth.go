package http

import (
	"net/http"

	"ledgerbook/internal/log"
)

type loginResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type messageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpLogin, err)
		return
	}

	username := p.Get("username")
	user, err := s.auth.VerifyCredentials(r.Context(), username, p.GetRaw("password"))
	if err != nil {
		s.metrics.LoginFailures.Inc()
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Login rejected", log.FieldUsername, username)
		s.writeError(w, r, log.OpLogin, err)
		return
	}

	NewJSONResponse(loginResponse{OK: true, Username: user.Username, Role: user.Role}).Write(w)
}

func (s *Server) handleChangeCredentials(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.writeError(w, r, log.OpRotate, err)
		return
	}

	err := s.auth.RotateCredentials(r.Context(),
		p.Get("oldUsername"), p.GetRaw("oldPassword"),
		p.Get("newUsername"), p.GetRaw("newPassword"))
	if err != nil {
		s.writeError(w, r, log.OpRotate, err)
		return
	}

	NewJSONResponse(messageResponse{OK: true, Message: "Credentials updated. Please login again."}).Write(w)
}
