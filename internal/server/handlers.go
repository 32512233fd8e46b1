package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/storage"
	"github.com/illarion/boveda/internal/vault"
)

func (s *Server) getVault(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	if err := storage.ValidateDeviceID(device); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := s.store.Get(r.Context(), device)
	if errors.Is(err, remote.ErrNotFound) {
		http.Error(w, "vault not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error(r.Context(), "failed to read vault", "device", device, "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}

	data, err := vault.Encode(c)
	if err != nil {
		s.log.Error(r.Context(), "stored vault is malformed", "device", device, "error", err)
		http.Error(w, "stored vault is malformed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) putVault(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	if err := storage.ValidateDeviceID(device); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	c, err := vault.Decode(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.Put(r.Context(), device, c); err != nil {
		s.log.Error(r.Context(), "failed to store vault", "device", device, "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	s.log.Info(r.Context(), "stored vault", "device", device, "updated_at", vault.FormatTime(c.UpdatedAt))
	w.WriteHeader(http.StatusNoContent)
}
