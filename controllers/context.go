package controllers

import (
	"net/http"

	"github.com/rentnest/rentnest-backend/services"
)

type ContextKey string

const (
	UserIDKey   = ContextKey("userID")
	UserRoleKey = ContextKey("userRole")
)

// actorFromRequest pulls the authenticated actor out of the request context
// populated by the auth middleware.
func actorFromRequest(r *http.Request) (services.Actor, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok || userID == "" {
		return services.Actor{}, false
	}
	role, _ := r.Context().Value(UserRoleKey).(string)
	return services.Actor{ID: userID, Role: role}, true
}
