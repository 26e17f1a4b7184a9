package controllers

import (
	"log"
	"net/http"

	"github.com/rentnest/rentnest-backend/realtime"
)

// ServeWS attaches the authenticated user to the realtime hub so they
// receive application status-change events.
func ServeWS(hub *realtime.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}
		hub.Serve(w, r, actor.ID)
	}
}
