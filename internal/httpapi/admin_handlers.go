package httpapi

import (
	"net/http"

	"poRequestTracker/internal/accounts"
	"poRequestTracker/internal/purchasing"
)

func (s *Server) adminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.Purchasing.AdminDashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*purchasing.AdminDashboard
	}{true, d})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Accounts.ListUsers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"users": users})
}

func userInput(p params) accounts.UserInput {
	return accounts.UserInput{
		Username: p.str("username"),
		Password: p.str("password"),
		Role:     p.str("role"),
		Email:    p.str("email"),
		FullName: p.str("full_name"),
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	u, err := s.Accounts.CreateUser(r.Context(), principal(r).Name, userInput(p))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, object{"user": u, "message": "User " + u.Username + " created successfully!"})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user ID")
		return
	}
	u, err := s.Accounts.GetUser(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"user": u})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user ID")
		return
	}
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	u, err := s.Accounts.UpdateUser(r.Context(), principal(r).Name, id, userInput(p))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"user": u, "message": "User " + u.Username + " updated successfully!"})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid user ID")
		return
	}
	if err := s.Accounts.DeleteUser(r.Context(), principal(r).Name, id); err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}
