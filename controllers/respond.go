package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rentnest/rentnest-backend/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps workflow errors onto HTTP statuses. Unknown errors
// are logged in full and surfaced as a generic 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrAlreadyFinalized):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
