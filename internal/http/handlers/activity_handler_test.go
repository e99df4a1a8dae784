package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-pixelwar-backend/internal/domain"
	"github.com/tbourn/go-pixelwar-backend/internal/services"
)

// seedHistory commits n placements one second apart through the real pipeline.
func seedHistory(t *testing.T, db *gorm.DB, canvasID string, n int) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	clock := base
	place := &services.PlacementService{DB: db, Now: func() time.Time { return clock }}
	who := domain.RegisteredIdentity("u1")
	for i := 0; i < n; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		if _, err := place.Place(context.Background(), canvasID, i%10, i/10, "#404040", who, ""); err != nil {
			t.Fatalf("seed place %d: %v", i, err)
		}
	}
}

func TestGetActivity_PagesNewestFirst(t *testing.T) {
	r, db := newAPI(t)
	c := seedCanvas(t, db, func(c *domain.Canvas) { c.RegWindowLimit = 100 })
	seedHistory(t, db, c.ID, 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/canvases/"+c.ID+"/activity?limit=3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var page ActivityResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Placements) != 3 {
		t.Fatalf("placements = %d, want 3", len(page.Placements))
	}
	for i := 1; i < len(page.Placements); i++ {
		if page.Placements[i].PlacedAt.After(page.Placements[i-1].PlacedAt) {
			t.Fatalf("not newest-first at %d", i)
		}
	}
	if page.NextBefore == nil || page.NextBeforeID == "" {
		t.Fatalf("expected next_before/next_before_id cursor on full page")
	}

	// Follow the cursor for the older remainder.
	cursor := url.QueryEscape(page.NextBefore.Format(time.RFC3339Nano))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/canvases/"+c.ID+"/activity?limit=3&before="+cursor+"&before_id="+url.QueryEscape(page.NextBeforeID), nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("older status = %d body=%s", w2.Code, w2.Body.String())
	}
	var older ActivityResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &older); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(older.Placements) != 2 {
		t.Fatalf("older placements = %d, want 2", len(older.Placements))
	}
	if older.NextBefore != nil {
		t.Fatalf("no cursor expected on the final page")
	}
}

func TestGetActivity_BadCursor(t *testing.T) {
	r, db := newAPI(t)
	c := seedCanvas(t, db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/canvases/"+c.ID+"/activity?before=yesterday", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetActivity_MissingCanvas(t *testing.T) {
	r, _ := newAPI(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/canvases/"+uuid.NewString()+"/activity", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetActivity_KeepsServingInactiveCanvas(t *testing.T) {
	r, db := newAPI(t)
	c := seedCanvas(t, db, func(c *domain.Canvas) { c.RegWindowLimit = 100 })
	seedHistory(t, db, c.ID, 2)
	if err := db.Model(&domain.Canvas{}).Where("id = ?", c.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/canvases/"+c.ID+"/activity", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on inactive board", w.Code)
	}
	var page ActivityResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(page.Placements))
	}
}
