package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/inventory-tracker/internal/persistence"
)

var (
	roomCounter      uint64
	equipmentCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// RoomFixture represents a deterministic room record that can be materialised
// for application or persistence tests.
type RoomFixture struct {
	ID        string
	Name      string
	Barcode   string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Barcode:   fmt.Sprintf("ROOM%03d", idx),
		Location:  fmt.Sprintf("Floor %d", idx%5+1),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomBarcode overrides the generated barcode.
func WithRoomBarcode(barcode string) RoomOption {
	return func(f *RoomFixture) {
		f.Barcode = barcode
	}
}

// WithRoomName overrides the generated name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// Persistence converts the fixture into a persistence model.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:        f.ID,
		Name:      f.Name,
		Barcode:   f.Barcode,
		Location:  f.Location,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// EquipmentFixture represents a deterministic equipment record.
type EquipmentFixture struct {
	ID        string
	RoomID    string
	Name      string
	Barcode   string
	Category  string
	Status    string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EquipmentOption configures the generated equipment fixture.
type EquipmentOption func(*EquipmentFixture)

// NewEquipmentFixture returns a deterministic equipment fixture owned by the
// given room, with optional overrides.
func NewEquipmentFixture(roomID string, opts ...EquipmentOption) EquipmentFixture {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := EquipmentFixture{
		ID:        fmt.Sprintf("eq-%03d", idx),
		RoomID:    roomID,
		Name:      fmt.Sprintf("Equipment %03d", idx),
		Barcode:   fmt.Sprintf("EQ%03d", idx),
		Category:  "Electronics",
		Status:    "available",
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEquipmentBarcode overrides the generated barcode.
func WithEquipmentBarcode(barcode string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Barcode = barcode
	}
}

// WithEquipmentStatus overrides the default available status.
func WithEquipmentStatus(status string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Status = status
	}
}

// WithEquipmentCategory overrides the default category.
func WithEquipmentCategory(category string) EquipmentOption {
	return func(f *EquipmentFixture) {
		f.Category = category
	}
}

// Persistence converts the fixture into a persistence model.
func (f EquipmentFixture) Persistence() persistence.Equipment {
	return persistence.Equipment{
		ID:        f.ID,
		RoomID:    f.RoomID,
		Name:      f.Name,
		Barcode:   f.Barcode,
		Category:  f.Category,
		Status:    f.Status,
		Position:  f.Position,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
