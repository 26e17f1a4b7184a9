package routes

import (
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rentnest/rentnest-backend/controllers"
	"github.com/rentnest/rentnest-backend/middleware"
	"github.com/rentnest/rentnest-backend/realtime"
	"github.com/rentnest/rentnest-backend/services"
	"github.com/rentnest/rentnest-backend/store"
)

func Routes(router *mux.Router, properties store.PropertyStore, workflow *services.WorkflowService, hub *realtime.Hub, redisClient *redis.Client) {
	// Auth routes
	router.HandleFunc("/register", controllers.RegisterUser()).Methods("POST")
	router.HandleFunc("/login", controllers.LoginUser()).Methods("POST")

	// Routes that require authentication
	authenticated := router.PathPrefix("/api").Subrouter()
	authenticated.Use(middleware.AuthMiddleware)

	// Property routes
	authenticated.HandleFunc("/properties", controllers.CreateProperty(properties, redisClient)).Methods("POST")
	authenticated.HandleFunc("/properties", controllers.GetAllProperties(properties, redisClient)).Methods("GET")
	authenticated.HandleFunc("/properties/{id}", controllers.GetPropertyByID(properties)).Methods("GET")
	authenticated.HandleFunc("/properties/{id}", controllers.UpdateProperty(properties, redisClient)).Methods("PUT")
	authenticated.HandleFunc("/properties/{id}", controllers.DeleteProperty(properties, redisClient)).Methods("DELETE")
	authenticated.HandleFunc("/properties/{id}/availability", controllers.SetPropertyAvailability(workflow, redisClient)).Methods("PATCH")

	// Application routes
	authenticated.HandleFunc("/applications", controllers.SubmitApplication(workflow)).Methods("POST")
	authenticated.HandleFunc("/applications/mine", controllers.GetMyApplications(workflow)).Methods("GET")
	authenticated.HandleFunc("/applications/property/{propertyId}", controllers.GetApplicationsForProperty(workflow)).Methods("GET")
	authenticated.HandleFunc("/applications/{id}/approve", controllers.ApproveApplication(workflow)).Methods("PATCH")
	authenticated.HandleFunc("/applications/{id}/reject", controllers.RejectApplication(workflow)).Methods("PATCH")

	// Realtime status-change events
	authenticated.HandleFunc("/ws", controllers.ServeWS(hub)).Methods("GET")
}
