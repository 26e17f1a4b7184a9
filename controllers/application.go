package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rentnest/rentnest-backend/models"
	"github.com/rentnest/rentnest-backend/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type submitApplicationRequest struct {
	PropertyID string `json:"propertyId"`
	Message    string `json:"message"`
}

type approveApplicationResponse struct {
	Application *models.Application `json:"application"`
	Property    *models.Property    `json:"property"`
}

func SubmitApplication(svc *services.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		var req submitApplicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("Invalid request body: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.PropertyID == "" {
			http.Error(w, "propertyId is required", http.StatusBadRequest)
			return
		}
		propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
		if err != nil {
			log.Printf("Invalid property ID %s: %v", req.PropertyID, err)
			http.Error(w, "Invalid property ID", http.StatusBadRequest)
			return
		}

		application, err := svc.Submit(r.Context(), actor.ID, propertyID, req.Message)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, models.APIResponse{
			Success: true,
			Message: "Application submitted",
			Data:    application,
		})
	}
}

func GetMyApplications(svc *services.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		applications, err := svc.ListForTenant(r.Context(), actor.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if applications == nil {
			applications = []models.ApplicationSummary{}
		}

		writeJSON(w, http.StatusOK, applications)
	}
}

func GetApplicationsForProperty(svc *services.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		propertyID, err := primitive.ObjectIDFromHex(mux.Vars(r)["propertyId"])
		if err != nil {
			http.Error(w, "Invalid property ID", http.StatusBadRequest)
			return
		}

		applications, err := svc.ListForProperty(r.Context(), actor, propertyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if applications == nil {
			applications = []models.Application{}
		}

		writeJSON(w, http.StatusOK, applications)
	}
}

func ApproveApplication(svc *services.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		applicationID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid application ID", http.StatusBadRequest)
			return
		}

		application, property, err := svc.Approve(r.Context(), actor, applicationID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, approveApplicationResponse{
			Application: application,
			Property:    property,
		})
	}
}

func RejectApplication(svc *services.WorkflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		applicationID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid application ID", http.StatusBadRequest)
			return
		}

		application, err := svc.Reject(r.Context(), actor, applicationID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Success: true,
			Message: "Application rejected",
			Data:    application,
		})
	}
}
