package web

import (
	"net/http"

	"subscription-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	clients, err := s.deps.Clients.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var in usecase.ClientInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	c, err := s.deps.Clients.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	var in usecase.ClientInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	c, err := s.deps.Clients.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Clients.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.log, s.dev, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Client deleted successfully"})
}
