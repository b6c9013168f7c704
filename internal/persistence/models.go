package persistence

import "time"

// Room represents an inventoried room tracked by the service.
type Room struct {
	ID        string
	Name      string
	Barcode   string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Equipment represents a piece of equipment owned by exactly one room.
// Position preserves the caller-supplied ordering within the room.
type Equipment struct {
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

// BarcodeOwnerKind tags which table owns a barcode in the shared registry.
type BarcodeOwnerKind string

const (
	// BarcodeOwnerRoom marks a registry entry claimed by a room.
	BarcodeOwnerRoom BarcodeOwnerKind = "room"
	// BarcodeOwnerEquipment marks a registry entry claimed by an equipment item.
	BarcodeOwnerEquipment BarcodeOwnerKind = "equipment"
)
