package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/inventory-tracker/internal/persistence"
)

// InventoryRepository captures the persistence operations needed by the service.
type InventoryRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// InventoryService orchestrates validation and persistence for rooms and
// their equipment.
type InventoryService struct {
	repo        InventoryRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewInventoryService constructs an inventory service with the provided dependencies.
func NewInventoryService(repo InventoryRepository, idGenerator func() string, now func() time.Time) *InventoryService {
	return NewInventoryServiceWithLogger(repo, idGenerator, now, nil)
}

// NewInventoryServiceWithLogger constructs an inventory service with a specified logger.
func NewInventoryServiceWithLogger(repo InventoryRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *InventoryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &InventoryService{repo: repo, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *InventoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InventoryService", operation, attrs...)
}

// CreateRoom validates input and persists a new room with its equipment list.
func (s *InventoryService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("InventoryService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "barcode", params.Input.Barcode)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	room = s.buildRoom(s.idGenerator(), params.Input)
	room.CreatedAt = s.now()
	room.UpdatedAt = room.CreatedAt

	if s.repo == nil {
		err = fmt.Errorf("inventory repository not configured")
		return
	}

	var persisted Room
	persisted, err = s.repo.CreateRoom(ctx, room)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	room = persisted
	return
}

// UpdateRoom replaces a room's stored state with the supplied one. Equipment
// items carrying a known id are updated in place, items without an id are
// inserted, and stored items absent from the input are removed.
func (s *InventoryService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("InventoryService is nil")
		return
	}
	if s.repo == nil {
		err = fmt.Errorf("inventory repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom", "room_id", params.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	var existing Room
	existing, err = s.repo.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := s.buildRoom(existing.ID, params.Input)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	room, err = s.repo.UpdateRoom(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// GetRoom returns a single room with its equipment.
func (s *InventoryService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if s == nil || s.repo == nil {
		return Room{}, fmt.Errorf("inventory repository not configured")
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "GetRoom", "room_id", roomID).ErrorContext(ctx, "failed to get room", "error", err, "error_kind", ErrorKind(err))
		return Room{}, err
	}

	return room, nil
}

// ListRooms returns every room with its equipment, newest room first.
func (s *InventoryService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("inventory repository not configured")
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	rooms, err = s.repo.ListRooms(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// DeleteRoom removes a room; its equipment is deleted by cascade.
func (s *InventoryService) DeleteRoom(ctx context.Context, roomID string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("inventory repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "room_id", roomID)

	if err := s.repo.DeleteRoom(ctx, roomID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// buildRoom assembles a Room from validated input, minting identifiers for
// equipment items that do not carry one.
func (s *InventoryService) buildRoom(roomID string, input RoomInput) Room {
	room := Room{
		ID:       roomID,
		Name:     strings.TrimSpace(input.Name),
		Barcode:  strings.TrimSpace(input.Barcode),
		Location: strings.TrimSpace(input.Location),
	}

	for _, item := range input.Equipment {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			id = s.idGenerator()
		}
		status := EquipmentStatus(strings.TrimSpace(item.Status))
		if status == "" {
			status = StatusAvailable
		}
		room.Equipment = append(room.Equipment, Equipment{
			ID:       id,
			RoomID:   roomID,
			Name:     strings.TrimSpace(item.Name),
			Barcode:  strings.TrimSpace(item.Barcode),
			Category: strings.TrimSpace(item.Category),
			Status:   status,
		})
	}

	return room
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Barcode) == "" {
		vErr.add("barcode", "barcode is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}

	seen := map[string]struct{}{strings.TrimSpace(input.Barcode): {}}
	for i, item := range input.Equipment {
		field := fmt.Sprintf("equipment[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			vErr.add(field+".name", "name is required")
		}
		barcode := strings.TrimSpace(item.Barcode)
		if barcode == "" {
			vErr.add(field+".barcode", "barcode is required")
		} else if _, dup := seen[barcode]; dup {
			vErr.add(field+".barcode", "barcode must be unique")
		} else {
			seen[barcode] = struct{}{}
		}
		if strings.TrimSpace(item.Category) == "" {
			vErr.add(field+".category", "category is required")
		}
		if status := strings.TrimSpace(item.Status); status != "" && !EquipmentStatus(status).Valid() {
			vErr.add(field+".status", "status must be one of available, in-use, maintenance")
		}
	}

	return vErr
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("equipment", "equipment fields violate storage constraints")
		return vErr
	}
	return err
}
