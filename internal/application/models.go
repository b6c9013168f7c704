package application

import "time"

// EquipmentStatus enumerates the lifecycle states an equipment item can be in.
type EquipmentStatus string

const (
	// StatusAvailable marks equipment ready for use.
	StatusAvailable EquipmentStatus = "available"
	// StatusInUse marks equipment currently checked out within its room.
	StatusInUse EquipmentStatus = "in-use"
	// StatusMaintenance marks equipment withdrawn for servicing.
	StatusMaintenance EquipmentStatus = "maintenance"
)

// Valid reports whether the status is one of the enumerated values.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusMaintenance:
		return true
	}
	return false
}

// Equipment represents a piece of equipment owned by a room.
type Equipment struct {
	ID        string
	RoomID    string
	Name      string
	Barcode   string
	Category  string
	Status    EquipmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room represents an inventoried room together with its equipment, in the
// order the equipment was registered.
type Room struct {
	ID        string
	Name      string
	Barcode   string
	Location  string
	Equipment []Equipment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EquipmentInput captures caller provided equipment fields. ID is empty for
// new items and set when updating an existing one.
type EquipmentInput struct {
	ID       string
	Name     string
	Barcode  string
	Category string
	Status   string
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name      string
	Barcode   string
	Location  string
	Equipment []EquipmentInput
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Input RoomInput
}

// UpdateRoomParams wraps the data required to replace a room's state.
type UpdateRoomParams struct {
	RoomID string
	Input  RoomInput
}

// ResolutionKind tags which entity kind a barcode resolved to.
type ResolutionKind string

const (
	// ResolvedRoom indicates the barcode identifies a room.
	ResolvedRoom ResolutionKind = "room"
	// ResolvedEquipment indicates the barcode identifies an equipment item.
	ResolvedEquipment ResolutionKind = "equipment"
)

// Resolution is the outcome of a successful barcode lookup. Exactly one of
// Room or Equipment is set, matching Kind.
type Resolution struct {
	Kind      ResolutionKind
	Room      *Room
	Equipment *Equipment
}
