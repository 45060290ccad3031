package kv

import "fmt"

// Well-known keys. Room-scoped collections embed the room id; profile
// keys embed the canonical digits-only phone number.
const (
	RoomsKey        = "rooms"
	UsersKey        = "users"
	DeletedRoomsKey = "deletedRooms"
	UserPhoneKey    = "userPhone"
	UserRoleKey     = "userRole"
)

func MembersKey(roomID int64) string {
	return fmt.Sprintf("members:%d", roomID)
}

func InvoicesKey(roomID int64) string {
	return fmt.Sprintf("invoices:%d", roomID)
}

func InvoiceStatusKey(roomID int64) string {
	return fmt.Sprintf("invoices_status:%d", roomID)
}

func ProfileKey(phone string) string {
	return "profile:" + phone
}

func ProfilePhotoKey(phone string) string {
	return "profilePhoto:" + phone
}
