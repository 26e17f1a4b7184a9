package controllers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rentnest/rentnest-backend/models"
	"github.com/rentnest/rentnest-backend/services"
	"github.com/rentnest/rentnest-backend/store"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const listingLimit = 10

func CreateProperty(properties store.PropertyStore, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}
		if actor.Role != models.RoleLandlord && actor.Role != models.RoleAdmin {
			http.Error(w, "Only landlords can list properties", http.StatusForbidden)
			return
		}

		var property models.Property
		if err := json.NewDecoder(r.Body).Decode(&property); err != nil {
			log.Printf("Invalid request body: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		property.ID = primitive.NewObjectID()
		property.LandlordID = actor.ID
		property.CreatedAt = time.Now()
		if property.TotalUnits <= 0 {
			property.TotalUnits = 1
		}
		if property.AvailableUnits <= 0 || property.AvailableUnits > property.TotalUnits {
			property.AvailableUnits = property.TotalUnits
		}
		if !models.ValidAvailabilityStatus(property.AvailabilityStatus) {
			property.AvailabilityStatus = models.AvailabilityAvailable
		}

		if err := properties.Insert(r.Context(), &property); err != nil {
			log.Printf("Insert failed: %v", err)
			http.Error(w, "Failed to create property", http.StatusInternalServerError)
			return
		}

		go func() {
			deletePropertyCache(redisClient)
		}()

		writeJSON(w, http.StatusCreated, property)
	}
}

func GetAllProperties(properties store.PropertyStore, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		cacheKey := generateCacheKey(query)

		cachedData, err := redisClient.Get(r.Context(), cacheKey).Result()
		if err == nil {
			log.Printf("Cache Hit for key: %s", cacheKey)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(cachedData))
			return
		}
		if err != redis.Nil {
			log.Printf("Redis GET error for key %s: %v", cacheKey, err)
		}

		log.Printf("Cache Miss for key: %s", cacheKey)

		filter := buildListingFilter(query)

		result, err := properties.Find(r.Context(), filter, listingLimit)
		if err != nil {
			log.Printf("Error fetching properties with query %+v: %v", filter, err)
			http.Error(w, "Error fetching properties", http.StatusInternalServerError)
			return
		}

		resultBytes, err := json.Marshal(result)
		if err != nil {
			log.Printf("Failed to serialize properties: %v", err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}

		if err := redisClient.Set(r.Context(), cacheKey, resultBytes, 10*time.Minute).Err(); err != nil {
			log.Printf("Failed to cache response for key %s: %v", cacheKey, err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(resultBytes)
	}
}

func GetPropertyByID(properties store.PropertyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid property ID", http.StatusBadRequest)
			return
		}

		property, err := properties.GetByID(r.Context(), propertyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, property)
	}
}

func UpdateProperty(properties store.PropertyStore, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		propertyID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid property ID", http.StatusBadRequest)
			return
		}

		var updateData map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
			log.Printf("Invalid update data: %v", err)
			http.Error(w, "Invalid update data", http.StatusBadRequest)
			return
		}

		// Identity and unit accounting are not editable here; availability
		// goes through the availability endpoint.
		delete(updateData, "_id")
		delete(updateData, "landlordID")
		delete(updateData, "createdAt")
		delete(updateData, "totalUnits")
		delete(updateData, "availableUnits")
		delete(updateData, "availabilityStatus")
		if len(updateData) == 0 {
			http.Error(w, "No editable fields provided", http.StatusBadRequest)
			return
		}

		property, err := properties.GetByID(r.Context(), propertyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !actor.CanActOn(property.LandlordID) {
			http.Error(w, "Not allowed to update this property", http.StatusForbidden)
			return
		}

		if err := properties.Update(r.Context(), propertyID, bson.M(updateData)); err != nil {
			writeDomainError(w, err)
			return
		}

		go func() {
			deletePropertyCache(redisClient)
		}()

		writeJSON(w, http.StatusOK, map[string]string{"message": "Property updated successfully"})
	}
}

func DeleteProperty(properties store.PropertyStore, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		propertyID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid property ID", http.StatusBadRequest)
			return
		}

		property, err := properties.GetByID(r.Context(), propertyID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !actor.CanActOn(property.LandlordID) {
			http.Error(w, "Not allowed to delete this property", http.StatusForbidden)
			return
		}

		if err := properties.Delete(r.Context(), propertyID); err != nil {
			writeDomainError(w, err)
			return
		}

		go func() {
			deletePropertyCache(redisClient)
		}()

		writeJSON(w, http.StatusOK, map[string]string{"message": "Property deleted successfully"})
	}
}

func SetPropertyAvailability(svc *services.WorkflowService, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			log.Println("User ID missing in context")
			http.Error(w, "User ID missing in context", http.StatusUnauthorized)
			return
		}

		propertyID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid property ID", http.StatusBadRequest)
			return
		}

		var patch services.AvailabilityPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			log.Printf("Invalid availability payload: %v", err)
			http.Error(w, "Invalid availability payload", http.StatusBadRequest)
			return
		}

		property, err := svc.SetAvailability(r.Context(), actor, propertyID, patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		go func() {
			deletePropertyCache(redisClient)
		}()

		writeJSON(w, http.StatusOK, property)
	}
}

// buildListingFilter translates query params like price[lte]=2000 or
// city=Austin,Dallas into a Mongo filter over the listing fields.
func buildListingFilter(query url.Values) bson.M {
	var andConditions []bson.M
	fieldSpecificConditions := make(map[string]bson.M)

	operatorMap := map[string]string{
		"eq": "$eq", "ne": "$ne", "gt": "$gt", "gte": "$gte", "lt": "$lt", "lte": "$lte",
	}
	numericFields := map[string]bool{
		"price": true, "bedrooms": true, "bathrooms": true, "totalUnits": true, "availableUnits": true,
	}
	stringFields := map[string]bool{
		"title": true, "type": true, "state": true, "city": true,
		"furnished": true, "availabilityStatus": true, "landlordID": true,
	}

	for rawKey, queryValues := range query {
		if len(queryValues) == 0 || queryValues[0] == "" {
			continue
		}

		fieldKey := rawKey
		mongoOperator := "$eq"

		if strings.Contains(rawKey, "[") && strings.Contains(rawKey, "]") {
			parts := strings.SplitN(rawKey, "[", 2)
			fieldKey = parts[0]
			opKey := strings.TrimSuffix(parts[1], "]")
			if mappedOp, exists := operatorMap[opKey]; exists {
				mongoOperator = mappedOp
			} else {
				log.Printf("Unknown operator key: %s in query param %s", opKey, rawKey)
				continue
			}
		}
		queryValue := queryValues[0]

		if fieldKey == "amenities" {
			terms := strings.Split(queryValue, ",")
			var orClausesForField bson.A
			for _, term := range terms {
				trimmedTerm := strings.TrimSpace(term)
				if trimmedTerm == "" {
					continue
				}
				orClausesForField = append(orClausesForField, bson.M{fieldKey: bson.M{"$regex": primitive.Regex{Pattern: trimmedTerm, Options: "i"}}})
			}
			if len(orClausesForField) > 0 {
				andConditions = append(andConditions, bson.M{"$or": orClausesForField})
			}
			continue
		}

		if stringFields[fieldKey] {
			values := strings.Split(queryValue, ",")
			var trimmedValues []string
			for _, v := range values {
				trimmedV := strings.TrimSpace(v)
				if trimmedV != "" {
					trimmedValues = append(trimmedValues, trimmedV)
				}
			}
			if len(trimmedValues) > 0 {
				if mongoOperator == "$ne" {
					andConditions = append(andConditions, bson.M{fieldKey: bson.M{"$nin": trimmedValues}})
				} else {
					andConditions = append(andConditions, bson.M{fieldKey: bson.M{"$in": trimmedValues}})
				}
			}
			continue
		}

		if numericFields[fieldKey] {
			if _, ok := fieldSpecificConditions[fieldKey]; !ok {
				fieldSpecificConditions[fieldKey] = bson.M{}
			}
			numVal, err := strconv.ParseFloat(queryValue, 64)
			if err != nil {
				log.Printf("Invalid numeric value for %s operator %s: %s. Error: %v", fieldKey, mongoOperator, queryValue, err)
				continue
			}
			fieldSpecificConditions[fieldKey][mongoOperator] = numVal
			continue
		}
		log.Printf("Unhandled query parameter: %s (parsed as field: %s)", rawKey, fieldKey)
	}

	for field, conditionsMap := range fieldSpecificConditions {
		if len(conditionsMap) > 0 {
			andConditions = append(andConditions, bson.M{field: conditionsMap})
		}
	}

	filter := bson.M{}
	if len(andConditions) > 0 {
		filter["$and"] = andConditions
	}
	return filter
}

func generateCacheKey(queryParams url.Values) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		values := queryParams[key]
		sort.Strings(values)
		for _, val := range values {
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(val)
			sb.WriteString("&")
		}
	}
	rawKey := strings.TrimSuffix(sb.String(), "&")

	sum := sha256.Sum256([]byte(rawKey))
	return "property:" + hex.EncodeToString(sum[:])
}

func deletePropertyCache(redisClient *redis.Client) {
	ctx := context.Background()
	const scanPattern = "property:*"
	const scanCount = 100

	var keysToDelete []string
	var cursor uint64
	var err error

	for {
		var currentKeys []string
		currentKeys, cursor, err = redisClient.Scan(ctx, cursor, scanPattern, scanCount).Result()
		if err != nil {
			log.Printf("Error during Redis SCAN for pattern '%s': %v", scanPattern, err)
			return
		}
		keysToDelete = append(keysToDelete, currentKeys...)
		if cursor == 0 {
			break
		}
	}

	if len(keysToDelete) == 0 {
		return
	}

	pipe := redisClient.Pipeline()
	for _, key := range keysToDelete {
		pipe.Del(ctx, key)
	}
	if _, execErr := pipe.Exec(ctx); execErr != nil {
		log.Printf("Error executing pipeline for deleting %d property cache keys: %v", len(keysToDelete), execErr)
	} else {
		log.Printf("Property cache invalidated: deleted %d keys matching '%s'", len(keysToDelete), scanPattern)
	}
}
