package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"secretsanta/internal/models"
	"secretsanta/internal/services"
	"secretsanta/internal/storage"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, picker services.Picker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := storage.NewRegistry(nil, storage.NewMemoryStore())
	service := services.NewDrawService(registry, picker)
	return NewRouter(NewHTTPHandler(service, "https://amigo.example"))
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, body io.Reader, out *T) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
}

func createDraw(t *testing.T, router *gin.Engine, participants ...string) models.CreateDrawResponse {
	t.Helper()

	rec := performRequest(router, http.MethodPost, "/api/sorteios", gin.H{"participantes": participants})
	if rec.Code != http.StatusOK {
		t.Fatalf("create draw: expected status %d but got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var got models.CreateDrawResponse
	decodeBody(t, rec.Body, &got)
	return got
}

func TestHTTPHandler_CreateDraw(t *testing.T) {
	router := newTestRouter(t, nil)

	t.Run("success cleans the list", func(t *testing.T) {
		got := createDraw(t, router, " Ana ", "Bia", "Ana", "")

		if got.ID == "" {
			t.Fatal("expected a draw id")
		}
		if len(got.Participants) != 2 || got.Participants[0] != "Ana" || got.Participants[1] != "Bia" {
			t.Fatalf("unexpected participants: %v", got.Participants)
		}
		if got.Assignments == nil || len(got.Assignments) != 0 {
			t.Fatalf("expected empty assignments, got %v", got.Assignments)
		}
		if got.CreatedAt == 0 {
			t.Fatal("expected a creation time")
		}
		if got.Link != "https://amigo.example/sorteio/"+got.ID {
			t.Fatalf("unexpected link %q", got.Link)
		}
		if got.Storage != "local" {
			t.Fatalf("expected local storage, got %q", got.Storage)
		}
	})

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"missing list", gin.H{}, messageTooFewParticipants},
		{"one name", gin.H{"participantes": []string{"Ana"}}, messageTooFewParticipants},
		{"not a list", gin.H{"participantes": "Ana,Bia"}, messageTooFewParticipants},
		{"one name after cleaning", gin.H{"participantes": []string{"Ana", " Ana", "  "}}, messageTooFewValidParticipants},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performRequest(router, http.MethodPost, "/api/sorteios", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d but got %d", http.StatusBadRequest, rec.Code)
			}
			var got models.ErrorResponse
			decodeBody(t, rec.Body, &got)
			if got.Error != tt.message {
				t.Fatalf("expected message %q but got %q", tt.message, got.Error)
			}
		})
	}
}

func TestHTTPHandler_CreateDraw_LinkFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := services.NewDrawService(storage.NewRegistry(nil, nil), nil)
	router := NewRouter(NewHTTPHandler(service, ""))

	got := createDraw(t, router, "Ana", "Bia")
	// httptest requests target example.com
	if got.Link != "http://example.com/sorteio/"+got.ID {
		t.Fatalf("unexpected link %q", got.Link)
	}
}

func TestHTTPHandler_GetDraw(t *testing.T) {
	router := newTestRouter(t, nil)
	draw := createDraw(t, router, "Ana", "Bia", "Caio")

	rec := performRequest(router, http.MethodPost, "/api/sorteios/sortear", gin.H{"id": draw.ID, "nome": "Ana"})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: expected status %d but got %d", http.StatusOK, rec.Code)
	}

	t.Run("status hides recipients", func(t *testing.T) {
		rec := performRequest(router, http.MethodGet, "/api/sorteios?id="+draw.ID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d but got %d", http.StatusOK, rec.Code)
		}

		raw := rec.Body.Bytes()
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if _, ok := fields["sorteados"]; ok {
			t.Fatalf("status leaked assignments: %s", raw)
		}

		var got models.DrawStatus
		decodeBody(t, bytes.NewReader(raw), &got)
		if got.ClaimedCount != 1 || got.TotalCount != 3 || got.Complete {
			t.Fatalf("unexpected counts: %+v", got)
		}
		if len(got.Claimants) != 1 || got.Claimants[0] != "Ana" {
			t.Fatalf("unexpected claimants: %v", got.Claimants)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		rec := performRequest(router, http.MethodGet, "/api/sorteios", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d but got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := performRequest(router, http.MethodGet, "/api/sorteios?id=nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d but got %d", http.StatusNotFound, rec.Code)
		}
		var got models.ErrorResponse
		decodeBody(t, rec.Body, &got)
		if got.Error != messageDrawNotFound {
			t.Fatalf("expected message %q but got %q", messageDrawNotFound, got.Error)
		}
	})
}

func TestHTTPHandler_ClaimAssignment(t *testing.T) {
	// Always take the first candidate so the outcome is fixed: A -> B, B -> A.
	router := newTestRouter(t, services.PickerFunc(func(n int) int { return 0 }))
	draw := createDraw(t, router, "A", "B", "C")

	claim := func(id, name string) *httptest.ResponseRecorder {
		return performRequest(router, http.MethodPost, "/api/sorteios/sortear", gin.H{"id": id, "nome": name})
	}

	t.Run("success", func(t *testing.T) {
		rec := claim(draw.ID, "  A  ")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d but got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		var got models.ClaimResponse
		decodeBody(t, rec.Body, &got)
		want := models.ClaimResponse{Recipient: "B", ClaimedCount: 1, TotalCount: 3, Storage: "local"}
		if got != want {
			t.Fatalf("unexpected response: %+v", got)
		}
	})

	t.Run("already claimed carries the recipient", func(t *testing.T) {
		rec := claim(draw.ID, "A")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status %d but got %d", http.StatusConflict, rec.Code)
		}
		var got models.ErrorResponse
		decodeBody(t, rec.Body, &got)
		if got.Error != messageAlreadyClaimed || got.Recipient != "B" {
			t.Fatalf("unexpected response: %+v", got)
		}
	})

	t.Run("not a participant", func(t *testing.T) {
		rec := claim(draw.ID, "a")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d but got %d", http.StatusBadRequest, rec.Code)
		}
		var got models.ErrorResponse
		decodeBody(t, rec.Body, &got)
		if got.Error != messageNotAParticipant {
			t.Fatalf("expected message %q but got %q", messageNotAParticipant, got.Error)
		}
	})

	t.Run("pool exhausted", func(t *testing.T) {
		if rec := claim(draw.ID, "B"); rec.Code != http.StatusOK {
			t.Fatalf("claim for B: expected status %d but got %d", http.StatusOK, rec.Code)
		}
		rec := claim(draw.ID, "C")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status %d but got %d", http.StatusConflict, rec.Code)
		}
		var got models.ErrorResponse
		decodeBody(t, rec.Body, &got)
		if got.Error != messagePoolExhausted || got.Recipient != "" {
			t.Fatalf("unexpected response: %+v", got)
		}
	})

	t.Run("unknown draw", func(t *testing.T) {
		if rec := claim("nope", "A"); rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d but got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, body := range []gin.H{{"id": draw.ID}, {"nome": "A"}, {"id": " ", "nome": "A"}, {"id": draw.ID, "nome": "   "}} {
			rec := performRequest(router, http.MethodPost, "/api/sorteios/sortear", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("body %v: expected status %d but got %d", body, http.StatusBadRequest, rec.Code)
			}
		}
	})
}

func TestHTTPHandler_InternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHTTPHandler(&stubDrawService{err: errors.New("boom")}, ""))

	rec := performRequest(router, http.MethodPost, "/api/sorteios/sortear", gin.H{"id": "x", "nome": "A"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d but got %d", http.StatusInternalServerError, rec.Code)
	}
	var got models.ErrorResponse
	decodeBody(t, rec.Body, &got)
	if got.Error != messageInternalError {
		t.Fatalf("expected message %q but got %q", messageInternalError, got.Error)
	}
}

func TestHTTPHandler_DurableStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &stubDrawService{
		draw:        &models.Draw{ID: "d1", Participants: []string{"A", "B"}, Assignments: map[string]string{}},
		persistence: storage.PersistedDurably,
	}
	router := NewRouter(NewHTTPHandler(stub, "https://amigo.example/"))

	got := createDraw(t, router, "A", "B")
	if got.Storage != "durable" {
		t.Fatalf("expected durable storage, got %q", got.Storage)
	}
	if got.Link != "https://amigo.example/sorteio/d1" {
		t.Fatalf("unexpected link %q", got.Link)
	}
}

func TestHTTPHandler_Health(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := performRequest(router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

type stubDrawService struct {
	draw        *models.Draw
	persistence storage.Persistence
	err         error
}

func (s *stubDrawService) CreateDraw(ctx context.Context, participants []string) (*models.Draw, storage.Persistence, error) {
	return s.draw, s.persistence, s.err
}

func (s *stubDrawService) GetDraw(ctx context.Context, id string) (*models.Draw, error) {
	return s.draw, s.err
}

func (s *stubDrawService) ClaimAssignment(ctx context.Context, id, name string) (*services.ClaimResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.ClaimResult{Persistence: s.persistence}, nil
}
