package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// BarcodeIndex captures the lookup operations the resolver needs.
type BarcodeIndex interface {
	FindRoomByBarcode(ctx context.Context, barcode string) (Room, error)
	FindEquipmentByBarcode(ctx context.Context, barcode string) (Equipment, error)
}

// ResolverService maps a decoded barcode string to the record that owns it.
// It holds no state of its own; barcode uniqueness across both kinds is a
// store invariant, so at most one lookup can succeed.
type ResolverService struct {
	index  BarcodeIndex
	logger *slog.Logger
}

// NewResolverService constructs a resolver over the given barcode index.
func NewResolverService(index BarcodeIndex) *ResolverService {
	return NewResolverServiceWithLogger(index, nil)
}

// NewResolverServiceWithLogger constructs a resolver with a specified logger.
func NewResolverServiceWithLogger(index BarcodeIndex, logger *slog.Logger) *ResolverService {
	return &ResolverService{index: index, logger: defaultLogger(logger)}
}

// Resolve determines whether the barcode names a room or an equipment item.
// Rooms are tried first; the order is fixed and documented, not a tie-break,
// since the store never holds the same barcode under both kinds.
//
// A blank barcode is a validation error reported without touching the store.
// A barcode matching neither kind returns ErrNotFound.
func (s *ResolverService) Resolve(ctx context.Context, barcode string) (resolution Resolution, err error) {
	if s == nil || s.index == nil {
		return Resolution{}, fmt.Errorf("barcode index not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ResolverService", "Resolve", "barcode", barcode)
	defer func() {
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				logger.InfoContext(ctx, "barcode not assigned")
				return
			}
			logger.ErrorContext(ctx, "failed to resolve barcode", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("kind", string(resolution.Kind)).InfoContext(ctx, "barcode resolved")
	}()

	trimmed := strings.TrimSpace(barcode)
	if trimmed == "" {
		vErr := &ValidationError{}
		vErr.add("barcode", "barcode is required")
		err = vErr
		return
	}

	room, roomErr := s.index.FindRoomByBarcode(ctx, trimmed)
	if roomErr == nil {
		resolution = Resolution{Kind: ResolvedRoom, Room: &room}
		return
	}
	if err = mapLookupError(roomErr); !errors.Is(err, ErrNotFound) {
		return
	}

	item, itemErr := s.index.FindEquipmentByBarcode(ctx, trimmed)
	if itemErr == nil {
		resolution = Resolution{Kind: ResolvedEquipment, Equipment: &item}
		err = nil
		return
	}
	err = mapLookupError(itemErr)
	return
}

// mapLookupError keeps not-found as the normal miss outcome and treats every
// other lookup failure as the store being unreachable.
func mapLookupError(err error) error {
	if err == nil {
		return nil
	}
	mapped := mapRepoError(err)
	if errors.Is(mapped, ErrNotFound) || errors.Is(mapped, ErrStoreUnavailable) {
		return mapped
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, mapped)
}
