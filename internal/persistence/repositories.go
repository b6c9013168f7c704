package persistence

import "context"

// InventoryRepository stores rooms together with their owned equipment.
//
// CreateRoom and UpdateRoom are atomic: either the room and every equipment
// row (and their barcode registry claims) persist, or nothing does.
type InventoryRepository interface {
	CreateRoom(ctx context.Context, room Room, equipment []Equipment) error
	UpdateRoom(ctx context.Context, room Room, equipment []Equipment) error
	GetRoom(ctx context.Context, id string) (Room, []Equipment, error)
	ListRooms(ctx context.Context) ([]Room, map[string][]Equipment, error)
	DeleteRoom(ctx context.Context, id string) error

	FindRoomByBarcode(ctx context.Context, barcode string) (Room, []Equipment, error)
	FindEquipmentByBarcode(ctx context.Context, barcode string) (Equipment, error)
}
