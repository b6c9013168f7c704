package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/inventory-tracker/internal/application"
	"github.com/example/inventory-tracker/internal/scan"
)

type inventoryServiceStub struct {
	createFn func(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	updateFn func(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	getFn    func(ctx context.Context, roomID string) (application.Room, error)
	listFn   func(ctx context.Context) ([]application.Room, error)
	deleteFn func(ctx context.Context, roomID string) error
}

func (s *inventoryServiceStub) CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
	return s.createFn(ctx, params)
}

func (s *inventoryServiceStub) UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error) {
	return s.updateFn(ctx, params)
}

func (s *inventoryServiceStub) GetRoom(ctx context.Context, roomID string) (application.Room, error) {
	return s.getFn(ctx, roomID)
}

func (s *inventoryServiceStub) ListRooms(ctx context.Context) ([]application.Room, error) {
	return s.listFn(ctx)
}

func (s *inventoryServiceStub) DeleteRoom(ctx context.Context, roomID string) error {
	return s.deleteFn(ctx, roomID)
}

type resolverStub struct {
	resolveFn func(ctx context.Context, barcode string) (application.Resolution, error)
}

func (s *resolverStub) Resolve(ctx context.Context, barcode string) (application.Resolution, error) {
	return s.resolveFn(ctx, barcode)
}

type decoderStub struct {
	text string
	err  error
}

func (d *decoderStub) Decode(img image.Image) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.text, nil
}

type migratorStub struct {
	err    error
	called int
}

func (m *migratorStub) Migrate(ctx context.Context) error {
	m.called++
	return m.err
}

func sampleRoom() application.Room {
	created := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	return application.Room{
		ID:       "room-1",
		Name:     "Conference Room A",
		Barcode:  "ROOM001",
		Location: "Building 1",
		Equipment: []application.Equipment{
			{ID: "eq-1", RoomID: "room-1", Name: "Projector", Barcode: "EQ001", Category: "Electronics", Status: application.StatusAvailable, CreatedAt: created, UpdatedAt: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTestRouter(service inventoryService, resolver barcodeResolver, decoder scan.Decoder, migrator Migrator) http.Handler {
	cfg := RouterConfig{}
	if service != nil {
		cfg.Rooms = NewRoomHandler(service, nil)
	}
	if resolver != nil {
		cfg.Scans = NewScanHandler(resolver, decoder, nil)
	}
	if migrator != nil {
		cfg.Admin = NewAdminHandler(migrator, nil)
	}
	return NewRouter(cfg)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestRoomHandler_Create(t *testing.T) {
	t.Run("returns 201 with the created room", func(t *testing.T) {
		var received application.CreateRoomParams
		service := &inventoryServiceStub{
			createFn: func(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
				received = params
				return sampleRoom(), nil
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		body := `{"name":"Conference Room A","barcode":"ROOM001","location":"Building 1","equipment":[{"name":"Projector","barcode":"EQ001","category":"Electronics"}]}`
		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
		}
		if received.Input.Barcode != "ROOM001" || len(received.Input.Equipment) != 1 {
			t.Fatalf("expected request payload to reach the service, got %+v", received.Input)
		}

		var resp struct {
			Room struct {
				ID        string `json:"id"`
				Equipment []struct {
					Barcode string `json:"barcode"`
				} `json:"equipment"`
			} `json:"room"`
		}
		decodeBody(t, rec, &resp)
		if resp.Room.ID != "room-1" {
			t.Fatalf("expected created room in response, got %+v", resp)
		}
		if len(resp.Room.Equipment) != 1 || resp.Room.Equipment[0].Barcode != "EQ001" {
			t.Fatalf("expected equipment in response, got %+v", resp.Room.Equipment)
		}
	})

	t.Run("returns 400 for a malformed body", func(t *testing.T) {
		service := &inventoryServiceStub{
			createFn: func(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
				t.Fatalf("service must not be called for malformed input")
				return application.Room{}, nil
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 422 with the field map for validation failures", func(t *testing.T) {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		service := &inventoryServiceStub{
			createFn: func(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
				return application.Room{}, vErr
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(`{"barcode":"X"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}

		var resp struct {
			Message string            `json:"message"`
			Errors  map[string]string `json:"errors"`
		}
		decodeBody(t, rec, &resp)
		if resp.Errors["name"] != "name is required" {
			t.Fatalf("expected field errors in response, got %+v", resp)
		}
	})

	t.Run("returns 409 for a barcode conflict", func(t *testing.T) {
		service := &inventoryServiceStub{
			createFn: func(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
				return application.Room{}, application.ErrAlreadyExists
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(`{"name":"A","barcode":"DUP","location":"B"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}

		var resp struct {
			ErrorCode string `json:"error_code"`
		}
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "BARCODE_CONFLICT" {
			t.Fatalf("expected BARCODE_CONFLICT, got %q", resp.ErrorCode)
		}
	})

	t.Run("returns 503 when the store is unavailable", func(t *testing.T) {
		service := &inventoryServiceStub{
			createFn: func(ctx context.Context, params application.CreateRoomParams) (application.Room, error) {
				return application.Room{}, application.ErrStoreUnavailable
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(`{"name":"A","barcode":"X","location":"B"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestRoomHandler_GetUpdateDelete(t *testing.T) {
	t.Run("get returns the room by path id", func(t *testing.T) {
		service := &inventoryServiceStub{
			getFn: func(ctx context.Context, roomID string) (application.Room, error) {
				if roomID != "room-1" {
					t.Fatalf("expected room-1, got %q", roomID)
				}
				return sampleRoom(), nil
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/rooms/room-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("get returns 404 for an unknown room", func(t *testing.T) {
		service := &inventoryServiceStub{
			getFn: func(ctx context.Context, roomID string) (application.Room, error) {
				return application.Room{}, application.ErrNotFound
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/rooms/missing", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("update forwards the path id and payload", func(t *testing.T) {
		var received application.UpdateRoomParams
		service := &inventoryServiceStub{
			updateFn: func(ctx context.Context, params application.UpdateRoomParams) (application.Room, error) {
				received = params
				return sampleRoom(), nil
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPut, "/rooms/room-1", strings.NewReader(`{"name":"Renamed","barcode":"ROOM001","location":"B1"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}
		if received.RoomID != "room-1" || received.Input.Name != "Renamed" {
			t.Fatalf("expected params to reach the service, got %+v", received)
		}
	})

	t.Run("delete returns 204", func(t *testing.T) {
		var deleted string
		service := &inventoryServiceStub{
			deleteFn: func(ctx context.Context, roomID string) error {
				deleted = roomID
				return nil
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodDelete, "/rooms/room-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if deleted != "room-1" {
			t.Fatalf("expected delete to reach the service, got %q", deleted)
		}
	})

	t.Run("rejects unsupported methods with the allowed set", func(t *testing.T) {
		service := &inventoryServiceStub{}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodPatch, "/rooms/room-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPut) {
			t.Fatalf("expected Allow header to list PUT, got %q", allow)
		}
	})
}

func TestRoomHandler_List(t *testing.T) {
	t.Run("returns the rooms collection", func(t *testing.T) {
		service := &inventoryServiceStub{
			listFn: func(ctx context.Context) ([]application.Room, error) {
				return []application.Room{sampleRoom()}, nil
			},
		}
		router := newTestRouter(service, nil, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Rooms []struct {
				ID string `json:"id"`
			} `json:"rooms"`
		}
		decodeBody(t, rec, &resp)
		if len(resp.Rooms) != 1 || resp.Rooms[0].ID != "room-1" {
			t.Fatalf("expected one room, got %+v", resp.Rooms)
		}
	})
}

func TestScanHandler_Resolve(t *testing.T) {
	t.Run("requires a barcode parameter", func(t *testing.T) {
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				t.Fatalf("resolver must not be called without a barcode")
				return application.Resolution{}, nil
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/scan", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}

		var resp struct {
			Message string `json:"message"`
		}
		decodeBody(t, rec, &resp)
		if resp.Message != "barcode parameter required" {
			t.Fatalf("expected missing parameter message, got %q", resp.Message)
		}
	})

	t.Run("tags a room match as type room", func(t *testing.T) {
		room := sampleRoom()
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				return application.Resolution{Kind: application.ResolvedRoom, Room: &room}, nil
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/scan?barcode=ROOM001", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Type string `json:"type"`
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		decodeBody(t, rec, &resp)
		if resp.Type != "room" || resp.Data.ID != "room-1" {
			t.Fatalf("expected room resolution, got %+v", resp)
		}
	})

	t.Run("tags an equipment match as type equipment", func(t *testing.T) {
		item := sampleRoom().Equipment[0]
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				return application.Resolution{Kind: application.ResolvedEquipment, Equipment: &item}, nil
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/scan?barcode=EQ001", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Type string `json:"type"`
			Data struct {
				RoomID string `json:"room_id"`
			} `json:"data"`
		}
		decodeBody(t, rec, &resp)
		if resp.Type != "equipment" || resp.Data.RoomID != "room-1" {
			t.Fatalf("expected equipment resolution, got %+v", resp)
		}
	})

	t.Run("reports an unassigned barcode as 404 with the barcode in the message", func(t *testing.T) {
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				return application.Resolution{}, application.ErrNotFound
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/scan?barcode=UNKNOWN", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}

		var resp struct {
			Message string `json:"message"`
		}
		decodeBody(t, rec, &resp)
		if resp.Message != "No room or equipment found with barcode: UNKNOWN" {
			t.Fatalf("expected barcode in message, got %q", resp.Message)
		}
	})

	t.Run("reports store failures as 503", func(t *testing.T) {
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				return application.Resolution{}, application.ErrStoreUnavailable
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/scan?barcode=ROOM001", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func encodePNG(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return &buf
}

func TestScanHandler_ScanImage(t *testing.T) {
	t.Run("decodes the image and resolves the barcode", func(t *testing.T) {
		item := sampleRoom().Equipment[0]
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				if barcode != "EQ001" {
					t.Fatalf("expected decoded barcode EQ001, got %q", barcode)
				}
				return application.Resolution{Kind: application.ResolvedEquipment, Equipment: &item}, nil
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{text: "EQ001"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/scan/image", encodePNG(t))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Type string `json:"type"`
		}
		decodeBody(t, rec, &resp)
		if resp.Type != "equipment" {
			t.Fatalf("expected equipment resolution, got %+v", resp)
		}
	})

	t.Run("classifies an image without a barcode as not-found", func(t *testing.T) {
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				t.Fatalf("resolver must not be called when decoding fails")
				return application.Resolution{}, nil
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{err: scan.ErrNoBarcode}, nil)

		req := httptest.NewRequest(http.MethodPost, "/scan/image", encodePNG(t))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}

		var resp struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		}
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != string(scan.FailureNotFound) {
			t.Fatalf("expected not-found classification, got %q", resp.ErrorCode)
		}
		if resp.Message == "" {
			t.Fatalf("expected guidance message for a failed scan")
		}
	})

	t.Run("rejects a body that is not an image", func(t *testing.T) {
		resolver := &resolverStub{
			resolveFn: func(ctx context.Context, barcode string) (application.Resolution, error) {
				t.Fatalf("resolver must not be called for an unreadable body")
				return application.Resolution{}, nil
			},
		}
		router := newTestRouter(nil, resolver, &decoderStub{text: "EQ001"}, nil)

		req := httptest.NewRequest(http.MethodPost, "/scan/image", strings.NewReader("definitely not an image"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAdminHandler_InitSchema(t *testing.T) {
	t.Run("applies migrations and reports success", func(t *testing.T) {
		migrator := &migratorStub{}
		router := newTestRouter(nil, nil, nil, migrator)

		req := httptest.NewRequest(http.MethodPost, "/admin/init-db", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if migrator.called != 1 {
			t.Fatalf("expected one migrate call, got %d", migrator.called)
		}

		var resp map[string]string
		decodeBody(t, rec, &resp)
		if resp["status"] != "initialized" {
			t.Fatalf("expected initialized status, got %+v", resp)
		}
	})

	t.Run("reports 503 when migrations fail", func(t *testing.T) {
		migrator := &migratorStub{err: errors.New("disk full")}
		router := newTestRouter(nil, nil, nil, migrator)

		req := httptest.NewRequest(http.MethodPost, "/admin/init-db", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("only accepts POST", func(t *testing.T) {
		migrator := &migratorStub{}
		router := newTestRouter(nil, nil, nil, migrator)

		req := httptest.NewRequest(http.MethodGet, "/admin/init-db", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if migrator.called != 0 {
			t.Fatalf("expected no migrate call, got %d", migrator.called)
		}
	})
}
