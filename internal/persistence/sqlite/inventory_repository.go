package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/inventory-tracker/internal/persistence"
)

// InventoryRepository implements persistence.InventoryRepository using SQLite.
//
// Room and equipment writes share one transaction together with their
// claims on the barcodes registry, so a duplicate barcode anywhere in the
// payload rolls the whole write back.
type InventoryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewInventoryRepository creates a new SQLite inventory repository.
func NewInventoryRepository(pool *ConnectionPool) *InventoryRepository {
	return &InventoryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a room together with its equipment list.
func (r *InventoryRepository) CreateRoom(ctx context.Context, room persistence.Room, equipment []persistence.Equipment) error {
	if room.ID == "" || room.Barcode == "" {
		return persistence.ErrConstraintViolation
	}
	for _, item := range equipment {
		if item.ID == "" || item.Barcode == "" {
			return persistence.ErrConstraintViolation
		}
	}

	now := time.Now().UTC()
	createdAt := fallbackTime(room.CreatedAt, now)
	updatedAt := fallbackTime(room.UpdatedAt, createdAt)

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := claimBarcode(tx, room.Barcode, persistence.BarcodeOwnerRoom); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO rooms (id, name, barcode, location, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			room.ID,
			room.Name,
			room.Barcode,
			room.Location,
			formatTime(createdAt),
			formatTime(updatedAt),
		)
		if err != nil {
			return err
		}

		for i, item := range equipment {
			if err := claimBarcode(tx, item.Barcode, persistence.BarcodeOwnerEquipment); err != nil {
				return err
			}
			itemCreated := fallbackTime(item.CreatedAt, createdAt)
			itemUpdated := fallbackTime(item.UpdatedAt, itemCreated)
			_, err := tx.Exec(`
				INSERT INTO equipment (id, room_id, name, barcode, category, status, position, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				item.ID,
				room.ID,
				item.Name,
				item.Barcode,
				item.Category,
				item.Status,
				i,
				formatTime(itemCreated),
				formatTime(itemUpdated),
			)
			if err != nil {
				return err
			}
		}

		return nil
	})

	return r.mapper.MapError(err)
}

// UpdateRoom replaces the stored room and equipment state with the supplied
// one: new equipment ids are inserted, existing ones updated, and ids absent
// from the list deleted.
func (r *InventoryRepository) UpdateRoom(ctx context.Context, room persistence.Room, equipment []persistence.Equipment) error {
	if room.ID == "" || room.Barcode == "" {
		return persistence.ErrConstraintViolation
	}
	for _, item := range equipment {
		if item.ID == "" || item.Barcode == "" {
			return persistence.ErrConstraintViolation
		}
	}

	updatedAt := fallbackTime(room.UpdatedAt, time.Now().UTC())

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var storedBarcode string
		err := tx.QueryRow(`SELECT barcode FROM rooms WHERE id = ?`, room.ID).Scan(&storedBarcode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return err
		}

		if room.Barcode != storedBarcode {
			if err := releaseBarcode(tx, storedBarcode); err != nil {
				return err
			}
			if err := claimBarcode(tx, room.Barcode, persistence.BarcodeOwnerRoom); err != nil {
				return err
			}
		}

		_, err = tx.Exec(`
			UPDATE rooms
			SET name = ?, barcode = ?, location = ?, updated_at = ?
			WHERE id = ?
		`,
			room.Name,
			room.Barcode,
			room.Location,
			formatTime(updatedAt),
			room.ID,
		)
		if err != nil {
			return err
		}

		stored := make(map[string]string)
		rows, err := tx.Query(`SELECT id, barcode FROM equipment WHERE room_id = ?`, room.ID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id, barcode string
			if err := rows.Scan(&id, &barcode); err != nil {
				rows.Close()
				return err
			}
			stored[id] = barcode
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for i, item := range equipment {
			oldBarcode, exists := stored[item.ID]
			if exists {
				if item.Barcode != oldBarcode {
					if err := releaseBarcode(tx, oldBarcode); err != nil {
						return err
					}
					if err := claimBarcode(tx, item.Barcode, persistence.BarcodeOwnerEquipment); err != nil {
						return err
					}
				}
				_, err := tx.Exec(`
					UPDATE equipment
					SET name = ?, barcode = ?, category = ?, status = ?, position = ?, updated_at = ?
					WHERE id = ?
				`,
					item.Name,
					item.Barcode,
					item.Category,
					item.Status,
					i,
					formatTime(fallbackTime(item.UpdatedAt, updatedAt)),
					item.ID,
				)
				if err != nil {
					return err
				}
				delete(stored, item.ID)
				continue
			}

			if err := claimBarcode(tx, item.Barcode, persistence.BarcodeOwnerEquipment); err != nil {
				return err
			}
			itemCreated := fallbackTime(item.CreatedAt, updatedAt)
			itemUpdated := fallbackTime(item.UpdatedAt, itemCreated)
			_, err := tx.Exec(`
				INSERT INTO equipment (id, room_id, name, barcode, category, status, position, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				item.ID,
				room.ID,
				item.Name,
				item.Barcode,
				item.Category,
				item.Status,
				i,
				formatTime(itemCreated),
				formatTime(itemUpdated),
			)
			if err != nil {
				return err
			}
		}

		for id, barcode := range stored {
			if err := releaseBarcode(tx, barcode); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM equipment WHERE id = ?`, id); err != nil {
				return err
			}
		}

		return nil
	})

	return r.mapper.MapError(err)
}

// GetRoom retrieves a room and its equipment by room id.
func (r *InventoryRepository) GetRoom(ctx context.Context, id string) (persistence.Room, []persistence.Equipment, error) {
	if id == "" {
		return persistence.Room{}, nil, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, barcode, location, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`
	room, err := r.scanRoom(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Room{}, nil, err
	}

	equipment, err := r.equipmentForRoom(ctx, room.ID)
	if err != nil {
		return persistence.Room{}, nil, err
	}

	return room, equipment, nil
}

// ListRooms returns all rooms newest first, each with its equipment in
// position order. Rooms created at the same instant fall back to insertion
// order, so a later creation always lists before an earlier one regardless
// of how their ids compare.
func (r *InventoryRepository) ListRooms(ctx context.Context) ([]persistence.Room, map[string][]persistence.Equipment, error) {
	query := `
		SELECT id, name, barcode, location, created_at, updated_at
		FROM rooms
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoomRow(rows)
		if err != nil {
			return nil, nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, r.mapper.MapError(err)
	}

	equipmentRows, err := r.helper.Query(ctx, `
		SELECT id, room_id, name, barcode, category, status, position, created_at, updated_at
		FROM equipment
		ORDER BY room_id ASC, position ASC, id ASC
	`)
	if err != nil {
		return nil, nil, r.mapper.MapError(err)
	}
	defer equipmentRows.Close()

	equipmentByRoom := make(map[string][]persistence.Equipment)
	for equipmentRows.Next() {
		item, err := scanEquipmentRow(equipmentRows)
		if err != nil {
			return nil, nil, r.mapper.MapError(err)
		}
		equipmentByRoom[item.RoomID] = append(equipmentByRoom[item.RoomID], item)
	}
	if err := equipmentRows.Err(); err != nil {
		return nil, nil, r.mapper.MapError(err)
	}

	return rooms, equipmentByRoom, nil
}

// DeleteRoom removes a room, its equipment, and every barcode the room held.
func (r *InventoryRepository) DeleteRoom(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			DELETE FROM barcodes
			WHERE barcode IN (SELECT barcode FROM equipment WHERE room_id = ?)
		`, id)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			DELETE FROM barcodes
			WHERE barcode IN (SELECT barcode FROM rooms WHERE id = ?)
		`, id)
		if err != nil {
			return err
		}

		result, err := tx.Exec(`DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})

	return r.mapper.MapError(err)
}

// FindRoomByBarcode retrieves the room owning the barcode, with equipment.
func (r *InventoryRepository) FindRoomByBarcode(ctx context.Context, barcode string) (persistence.Room, []persistence.Equipment, error) {
	if barcode == "" {
		return persistence.Room{}, nil, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, barcode, location, created_at, updated_at
		FROM rooms
		WHERE barcode = ?
	`
	room, err := r.scanRoom(r.helper.QueryRow(ctx, query, barcode))
	if err != nil {
		return persistence.Room{}, nil, err
	}

	equipment, err := r.equipmentForRoom(ctx, room.ID)
	if err != nil {
		return persistence.Room{}, nil, err
	}

	return room, equipment, nil
}

// FindEquipmentByBarcode retrieves the equipment item owning the barcode.
func (r *InventoryRepository) FindEquipmentByBarcode(ctx context.Context, barcode string) (persistence.Equipment, error) {
	if barcode == "" {
		return persistence.Equipment{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT id, room_id, name, barcode, category, status, position, created_at, updated_at
		FROM equipment
		WHERE barcode = ?
	`, barcode)

	item, err := scanEquipmentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Equipment{}, persistence.ErrNotFound
		}
		return persistence.Equipment{}, r.mapper.MapError(err)
	}

	return item, nil
}

func (r *InventoryRepository) equipmentForRoom(ctx context.Context, roomID string) ([]persistence.Equipment, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, room_id, name, barcode, category, status, position, created_at, updated_at
		FROM equipment
		WHERE room_id = ?
		ORDER BY position ASC, id ASC
	`, roomID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var equipment []persistence.Equipment
	for rows.Next() {
		item, err := scanEquipmentRow(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		equipment = append(equipment, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return equipment, nil
}

func (r *InventoryRepository) scanRoom(row *sql.Row) (persistence.Room, error) {
	room, err := scanRoomRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoomRow(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Barcode,
		&room.Location,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}

func scanEquipmentRow(row rowScanner) (persistence.Equipment, error) {
	var item persistence.Equipment
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&item.ID,
		&item.RoomID,
		&item.Name,
		&item.Barcode,
		&item.Category,
		&item.Status,
		&item.Position,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Equipment{}, err
	}

	if item.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Equipment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Equipment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return item, nil
}

// fallbackTime lets callers stamp their own timestamps (injected clocks in
// particular) while defaulting zero values to the repository's clock.
func fallbackTime(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC()
}

// formatTime stores nanosecond precision so creation order survives the
// round trip even for same-second writes.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func claimBarcode(tx *sql.Tx, barcode string, kind persistence.BarcodeOwnerKind) error {
	_, err := tx.Exec(`INSERT INTO barcodes (barcode, owner_kind) VALUES (?, ?)`, barcode, string(kind))
	return err
}

func releaseBarcode(tx *sql.Tx, barcode string) error {
	_, err := tx.Exec(`DELETE FROM barcodes WHERE barcode = ?`, barcode)
	return err
}
