package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/inventory-tracker/internal/application"
	"github.com/example/inventory-tracker/internal/config"
	httptransport "github.com/example/inventory-tracker/internal/http"
	"github.com/example/inventory-tracker/internal/persistence"
	"github.com/example/inventory-tracker/internal/persistence/sqlite"
	"github.com/example/inventory-tracker/internal/scan"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	repo := newInventoryAdapter(sqlite.NewInventoryRepository(pool))
	inventoryService := application.NewInventoryServiceWithLogger(repo, idGenerator, now, logger)
	resolverService := application.NewResolverServiceWithLogger(repo, logger)

	if cfg.SeedData {
		seedSampleData(ctx, logger, inventoryService)
	}

	roomHandler := httptransport.NewRoomHandler(inventoryService, logger)
	scanHandler := httptransport.NewScanHandler(resolverService, scan.NewImageDecoder(), logger)
	adminHandler := httptransport.NewAdminHandler(&poolMigrator{pool: pool}, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Rooms:      roomHandler,
		Scans:      scanHandler,
		Admin:      adminHandler,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("inventory API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// poolMigrator adapts the sqlite migration entry point to the admin handler.
type poolMigrator struct {
	pool *sqlite.ConnectionPool
}

func (m *poolMigrator) Migrate(ctx context.Context) error {
	return sqlite.Migrate(ctx, m.pool)
}

// inventoryAdapter bridges the persistence repository to the application
// layer's interfaces, converting between the two model sets.
type inventoryAdapter struct {
	repo persistence.InventoryRepository
}

func newInventoryAdapter(repo persistence.InventoryRepository) *inventoryAdapter {
	return &inventoryAdapter{repo: repo}
}

func (a *inventoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	model, equipment := toPersistenceRoom(room)
	if err := a.repo.CreateRoom(ctx, model, equipment); err != nil {
		return application.Room{}, err
	}
	stored, storedEquipment, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored, storedEquipment), nil
}

func (a *inventoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	model, equipment := toPersistenceRoom(room)
	if err := a.repo.UpdateRoom(ctx, model, equipment); err != nil {
		return application.Room{}, err
	}
	stored, storedEquipment, err := a.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored, storedEquipment), nil
}

func (a *inventoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, storedEquipment, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored, storedEquipment), nil
}

func (a *inventoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, equipmentByRoom, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model, equipmentByRoom[model.ID]))
	}
	return rooms, nil
}

func (a *inventoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *inventoryAdapter) FindRoomByBarcode(ctx context.Context, barcode string) (application.Room, error) {
	stored, storedEquipment, err := a.repo.FindRoomByBarcode(ctx, barcode)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored, storedEquipment), nil
}

func (a *inventoryAdapter) FindEquipmentByBarcode(ctx context.Context, barcode string) (application.Equipment, error) {
	stored, err := a.repo.FindEquipmentByBarcode(ctx, barcode)
	if err != nil {
		return application.Equipment{}, err
	}
	return toApplicationEquipment(stored), nil
}

func toApplicationRoom(model persistence.Room, equipment []persistence.Equipment) application.Room {
	room := application.Room{
		ID:        model.ID,
		Name:      model.Name,
		Barcode:   model.Barcode,
		Location:  model.Location,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	for _, item := range equipment {
		room.Equipment = append(room.Equipment, toApplicationEquipment(item))
	}
	return room
}

func toApplicationEquipment(model persistence.Equipment) application.Equipment {
	return application.Equipment{
		ID:        model.ID,
		RoomID:    model.RoomID,
		Name:      model.Name,
		Barcode:   model.Barcode,
		Category:  model.Category,
		Status:    application.EquipmentStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) (persistence.Room, []persistence.Equipment) {
	model := persistence.Room{
		ID:        room.ID,
		Name:      room.Name,
		Barcode:   room.Barcode,
		Location:  room.Location,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
	equipment := make([]persistence.Equipment, 0, len(room.Equipment))
	for i, item := range room.Equipment {
		equipment = append(equipment, persistence.Equipment{
			ID:        item.ID,
			RoomID:    room.ID,
			Name:      item.Name,
			Barcode:   item.Barcode,
			Category:  item.Category,
			Status:    string(item.Status),
			Position:  i,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return model, equipment
}

// seedSampleData loads a small demonstration inventory. Reseeding an already
// populated database reports barcode conflicts, which are skipped.
func seedSampleData(ctx context.Context, logger *slog.Logger, service *application.InventoryService) {
	samples := []application.CreateRoomParams{
		{Input: application.RoomInput{
			Name: "Conference Room A", Barcode: "ROOM001", Location: "Building 1, Floor 2",
			Equipment: []application.EquipmentInput{
				{Name: "Projector", Barcode: "EQ001", Category: "Electronics", Status: "available"},
				{Name: "Whiteboard", Barcode: "EQ002", Category: "Furniture", Status: "available"},
				{Name: "Conference Phone", Barcode: "EQ003", Category: "Electronics", Status: "available"},
			},
		}},
		{Input: application.RoomInput{
			Name: "Conference Room B", Barcode: "ROOM002", Location: "Building 1, Floor 3",
			Equipment: []application.EquipmentInput{
				{Name: "Laptop", Barcode: "EQ004", Category: "Electronics", Status: "in-use"},
				{Name: "Desk", Barcode: "EQ005", Category: "Furniture", Status: "available"},
			},
		}},
		{Input: application.RoomInput{
			Name: "Server Room", Barcode: "ROOM003", Location: "Building 2, Basement",
			Equipment: []application.EquipmentInput{
				{Name: "Rack Server", Barcode: "EQ006", Category: "Electronics", Status: "maintenance"},
			},
		}},
	}

	for _, params := range samples {
		if _, err := service.CreateRoom(ctx, params); err != nil {
			if errors.Is(err, application.ErrAlreadyExists) {
				logger.Info("sample room already seeded", "barcode", params.Input.Barcode)
				continue
			}
			logger.Warn("failed to seed sample room", "barcode", params.Input.Barcode, "error", err)
		}
	}
}
