package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rentnest/rentnest-backend/models"
	"github.com/rentnest/rentnest-backend/services"
	"github.com/rentnest/rentnest-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCreatePropertyHandler(t *testing.T) {
	properties := store.NewMemoryPropertyStore()
	redisClient := newTestRedis(t)

	r := authedRequest(http.MethodPost, "/api/properties", "landlord-1", models.RoleLandlord,
		map[string]interface{}{"title": "Cedar Flats", "price": 1500})
	w := httptest.NewRecorder()
	CreateProperty(properties, redisClient)(w, r)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Property
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, "landlord-1", created.LandlordID)
	assert.Equal(t, 1, created.TotalUnits)
	assert.Equal(t, 1, created.AvailableUnits)
	assert.Equal(t, models.AvailabilityAvailable, created.AvailabilityStatus)
}

func TestCreatePropertyHandlerTenantForbidden(t *testing.T) {
	properties := store.NewMemoryPropertyStore()
	redisClient := newTestRedis(t)

	r := authedRequest(http.MethodPost, "/api/properties", "tenant-1", models.RoleTenant,
		map[string]interface{}{"title": "Cedar Flats"})
	w := httptest.NewRecorder()
	CreateProperty(properties, redisClient)(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetAllPropertiesCachesResult(t *testing.T) {
	properties := store.NewMemoryPropertyStore()
	redisClient := newTestRedis(t)
	require.NoError(t, properties.Insert(context.Background(), &models.Property{
		ID:         primitive.NewObjectID(),
		Title:      "Cedar Flats",
		LandlordID: "landlord-1",
		TotalUnits: 1,
		CreatedAt:  time.Now().UTC(),
	}))

	handler := GetAllProperties(properties, redisClient)

	r := authedRequest(http.MethodGet, "/api/properties?city=Austin", "tenant-1", models.RoleTenant, nil)
	w := httptest.NewRecorder()
	handler(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	firstBody := w.Body.String()

	// The serialized result is now cached under the query's key.
	key := generateCacheKey(url.Values{"city": []string{"Austin"}})
	cached, err := redisClient.Get(context.Background(), key).Result()
	require.NoError(t, err)
	assert.JSONEq(t, firstBody, cached)

	// A second identical request is served from the cache even if the
	// store changes underneath.
	require.NoError(t, properties.Insert(context.Background(), &models.Property{
		ID:        primitive.NewObjectID(),
		Title:     "Willow Walk",
		CreatedAt: time.Now().UTC(),
	}))
	r = authedRequest(http.MethodGet, "/api/properties?city=Austin", "tenant-1", models.RoleTenant, nil)
	w = httptest.NewRecorder()
	handler(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, firstBody, w.Body.String())
}

func TestSetPropertyAvailabilityHandler(t *testing.T) {
	properties := store.NewMemoryPropertyStore()
	applications := store.NewMemoryApplicationStore(properties)
	svc := services.NewWorkflowService(properties, applications, nil)
	redisClient := newTestRedis(t)

	property := &models.Property{
		ID:                 primitive.NewObjectID(),
		TotalUnits:         3,
		AvailableUnits:     3,
		AvailabilityStatus: models.AvailabilityAvailable,
		LandlordID:         "landlord-1",
	}
	require.NoError(t, properties.Insert(context.Background(), property))

	r := authedRequest(http.MethodPatch, "/api/properties/"+property.ID.Hex()+"/availability", "landlord-1", models.RoleLandlord,
		map[string]interface{}{"availableUnits": 0})
	r = mux.SetURLVars(r, map[string]string{"id": property.ID.Hex()})
	w := httptest.NewRecorder()
	SetPropertyAvailability(svc, redisClient)(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Property
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, 0, updated.AvailableUnits)
	assert.Equal(t, models.AvailabilityFullyOccupied, updated.AvailabilityStatus)

	// Non-owner is rejected.
	r = authedRequest(http.MethodPatch, "/api/properties/"+property.ID.Hex()+"/availability", "intruder", models.RoleLandlord,
		map[string]interface{}{"availableUnits": 1})
	r = mux.SetURLVars(r, map[string]string{"id": property.ID.Hex()})
	w = httptest.NewRecorder()
	SetPropertyAvailability(svc, redisClient)(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBuildListingFilter(t *testing.T) {
	filter := buildListingFilter(url.Values{
		"city":       []string{"Austin, Dallas"},
		"price[lte]": []string{"2000"},
		"bogus":      []string{"x"},
	})

	conditions, ok := filter["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, conditions, 2)

	var sawCity, sawPrice bool
	for _, cond := range conditions {
		if clause, ok := cond["city"].(bson.M); ok {
			assert.Equal(t, bson.M{"$in": []string{"Austin", "Dallas"}}, clause)
			sawCity = true
		}
		if clause, ok := cond["price"].(bson.M); ok {
			assert.Equal(t, bson.M{"$lte": float64(2000)}, clause)
			sawPrice = true
		}
	}
	assert.True(t, sawCity)
	assert.True(t, sawPrice)
}

func TestBuildListingFilterEmptyQuery(t *testing.T) {
	filter := buildListingFilter(url.Values{})
	assert.Empty(t, filter)
}
