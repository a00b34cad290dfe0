package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/cache"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/catalog"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/engine"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/service"
)

func setupTestHandler(t *testing.T) (*Handler, *catalog.Store, func()) {
	dbPath := "./test_handler_" + time.Now().Format("20060102150405.000000000") + ".db"
	store, err := catalog.NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	svc := service.NewService(service.Options{
		Store:  store,
		Cache:  cache.NewMemoryCache(),
		Engine: engine.New(engine.DefaultConfig()),
	})
	h := NewHandler(svc)

	cleanup := func() {
		store.Close()
		os.Remove(dbPath)
	}

	return h, store, cleanup
}

func setupRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.Routes(r)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return r
}

func storedCard(t *testing.T, store *catalog.Store, name string, rules []models.RewardRule) models.Card {
	t.Helper()
	card := models.Card{
		ID: uuid.New().String(), Name: name, Bank: "Test Bank", Rules: rules,
	}
	if err := store.UpsertCard(card); err != nil {
		t.Fatalf("UpsertCard failed: %v", err)
	}
	return card
}

func TestHealthCheck(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestCalculate_Success(t *testing.T) {
	h, store, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	storedCard(t, store, "Flat Card", []models.RewardRule{
		{Description: "base", MatchType: models.MatchBase, Percentage: 2},
	})

	body, _ := json.Marshal(models.CalculationRequest{
		Merchant: models.Merchant{ID: "m1", Name: "Shopee", CategoryIDs: []string{"online"}},
		Amount:   1000,
	})
	req := httptest.NewRequest("POST", "/calculations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.CalculationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(response.Results))
	}
	if response.Results[0].TotalReward != 20 {
		t.Errorf("Expected reward 20, got %v", response.Results[0].TotalReward)
	}
}

func TestCalculate_ScalarMatchValuesAccepted(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	// match_values as a bare string, the legacy wire shape.
	body := `{
		"cards": [{
			"id": "c1", "name": "Inline", "bank": "Bank",
			"rules": [{"description": "online", "match_type": "category", "match_values": "online", "percentage": 3}]
		}],
		"merchant": {"id": "m1", "category_ids": ["online"]},
		"amount": 1000
	}`
	req := httptest.NewRequest("POST", "/calculations", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.CalculationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Results) != 1 || response.Results[0].TotalPercentage != 3 {
		t.Errorf("Expected the scalar-matched rule applied, got %+v", response.Results)
	}
}

func TestCalculate_InvalidJSON(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("POST", "/calculations", bytes.NewBufferString("invalid json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}

	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	if response.Error == "" {
		t.Error("Expected error message in response")
	}
}

func TestCalculate_NegativeAmount(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	body, _ := json.Marshal(models.CalculationRequest{
		Merchant: models.Merchant{ID: "m1"},
		Amount:   -100,
	})
	req := httptest.NewRequest("POST", "/calculations", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d. Body: %s", rr.Code, rr.Body.String())
	}
}

func TestSaveCard_Success(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	card := models.Card{
		Name: "New Card", Bank: "Test Bank",
		Rules: []models.RewardRule{
			{Description: "base", MatchType: models.MatchBase, Percentage: 1},
		},
	}
	body, _ := json.Marshal(card)
	req := httptest.NewRequest("POST", "/cards", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var saved models.Card
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if saved.ID == "" {
		t.Error("Expected an assigned card id")
	}
}

func TestSaveCard_InvalidRule(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	card := models.Card{
		Name: "Bad Card", Bank: "Test Bank",
		Rules: []models.RewardRule{
			{Description: "broken", MatchType: models.MatchCategory, Percentage: 3}, // no match values
		},
	}
	body, _ := json.Marshal(card)
	req := httptest.NewRequest("POST", "/cards", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d. Body: %s", rr.Code, rr.Body.String())
	}
}

func TestGetCard_NotFound(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/cards/"+uuid.New().String(), nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestListCards_Empty(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/cards", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response models.CardListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Cards == nil || len(response.Cards) != 0 {
		t.Errorf("Expected empty card array, got %v", response.Cards)
	}
}

func TestDeleteCard(t *testing.T) {
	h, store, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	card := storedCard(t, store, "Doomed Card", []models.RewardRule{
		{Description: "base", MatchType: models.MatchBase, Percentage: 1},
	})

	req := httptest.NewRequest("DELETE", "/cards/"+card.ID, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}

	req = httptest.NewRequest("DELETE", "/cards/"+card.ID, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on double delete, got %d", rr.Code)
	}
}

func TestGetSceneRatings(t *testing.T) {
	h, store, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	card := storedCard(t, store, "Dining Card", []models.RewardRule{
		{Description: "base", MatchType: models.MatchBase, Percentage: 0.5},
		{Description: "dining 6%", MatchType: models.MatchCategory, MatchValues: models.StringList{"dining"}, Percentage: 6},
	})

	req := httptest.NewRequest("GET", "/cards/"+card.ID+"/scene-ratings", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.SceneRatingsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Ratings) == 0 || len(response.Ratings) > 4 {
		t.Errorf("Expected 1-4 ratings, got %d", len(response.Ratings))
	}
	if response.Ratings[0].Rating != 5 {
		t.Errorf("Expected a 5-star top scene, got %d", response.Ratings[0].Rating)
	}
}

func TestRankCategory(t *testing.T) {
	h, store, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	storedCard(t, store, "Dining Card", []models.RewardRule{
		{Description: "dining 8%", MatchType: models.MatchCategory, MatchValues: models.StringList{"dining"}, Percentage: 8},
	})

	req := httptest.NewRequest("GET", "/rankings/dining?limit=5", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.RankingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Group != "dining" {
		t.Errorf("Expected group 'dining', got %s", response.Group)
	}
	if len(response.Results) != 1 || response.Results[0].Rate != 8 {
		t.Errorf("Expected one 8%% entry, got %+v", response.Results)
	}
}

func TestRankCategory_UnknownGroup(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/rankings/crypto", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestRankCategory_InvalidLimit(t *testing.T) {
	h, _, cleanup := setupTestHandler(t)
	defer cleanup()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/rankings/dining?limit=abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestInternalErrorDetailNotExposed(t *testing.T) {
	h, store, cleanup := setupTestHandler(t)
	defer cleanup()

	// Close the store so the list query fails with a driver error.
	store.Close()

	r := setupRouter(h)

	req := httptest.NewRequest("GET", "/cards", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse error response: %v", err)
	}
	if resp.Error != "internal server error" {
		t.Errorf("Expected generic error message, got %q", resp.Error)
	}
}
