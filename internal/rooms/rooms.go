// Package rooms manages the room index, membership lists and the
// single-master invariant.
package rooms

import (
	"context"
	"fmt"
	"strings"

	"sharinghome/internal/core"
	"sharinghome/internal/directory"
	"sharinghome/internal/events"
	"sharinghome/internal/kv"
	"sharinghome/internal/log"
)

// stockPlaceholderAvatar is a legacy default avatar some persisted
// member records still carry. It is stripped on load so the absence of
// a real photo renders as initials instead of a stranger's face.
const stockPlaceholderAvatar = "https://images.unsplash.com/photo-1494790108377-be9c29b29330?ixlib=rb-1.2.1&ixid=MnwxMjA3fDB8MHxwaG90by1wYWdlfHx8fGVufDB8fHx8&auto=format&fit=crop&w=687&q=80"

// Manager owns room and membership persistence.
type Manager struct {
	store  kv.Store
	dir    *directory.Directory
	bus    *events.Bus
	logger *log.Logger
}

func NewManager(store kv.Store, dir *directory.Directory, bus *events.Bus, logger *log.Logger) *Manager {
	return &Manager{
		store:  store,
		dir:    dir,
		bus:    bus,
		logger: logger.WithComponent(log.ComponentRooms),
	}
}

func (m *Manager) publish(e events.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

// Rooms returns all rooms, with tombstoned ids filtered out.
func (m *Manager) Rooms(ctx context.Context) ([]core.Room, error) {
	rooms, err := kv.GetList[core.Room](ctx, m.store, kv.RoomsKey)
	if err != nil {
		return nil, err
	}
	deleted, err := m.deletedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(deleted) == 0 {
		return rooms, nil
	}
	alive := make([]core.Room, 0, len(rooms))
	for _, r := range rooms {
		if !deleted[r.ID] {
			alive = append(alive, r)
		}
	}
	return alive, nil
}

// Room returns one room by id.
func (m *Manager) Room(ctx context.Context, roomID int64) (core.Room, error) {
	rooms, err := m.Rooms(ctx)
	if err != nil {
		return core.Room{}, err
	}
	for _, r := range rooms {
		if r.ID == roomID {
			return r, nil
		}
	}
	return core.Room{}, fmt.Errorf("room %d: %w", roomID, core.ErrRoomNotFound)
}

// CreateRoom appends a new room to the index. The session user becomes
// the home master contact and is recorded as the creator. Room ids are
// timestamp surrogates, so a deleted room's tombstone can never shadow
// a later room.
func (m *Manager) CreateRoom(ctx context.Context, name, homeName string) (core.Room, error) {
	if strings.TrimSpace(name) == "" {
		return core.Room{}, core.ErrEmptyName
	}

	room := core.Room{
		ID:          core.NewID(),
		Name:        name,
		HomeName:    homeName,
		MemberCount: 0,
	}

	phone, err := m.dir.SessionPhone(ctx)
	if err != nil {
		return core.Room{}, err
	}
	if phone != "" {
		ident, err := m.dir.ResolveIdentity(ctx, phone, nil)
		if err != nil {
			return core.Room{}, err
		}
		room.CreatedBy = phone
		room.HomeMaster = &core.Contact{Name: ident.Name, Phone: phone}
	}

	rooms, err := kv.GetList[core.Room](ctx, m.store, kv.RoomsKey)
	if err != nil {
		return core.Room{}, err
	}
	rooms = append(rooms, room)
	if err := kv.SetList(ctx, m.store, kv.RoomsKey, rooms); err != nil {
		return core.Room{}, err
	}

	m.logger.InfoContext(ctx, "Room created",
		log.FieldRoomID, room.ID,
		log.FieldOperation, log.OpCreate)
	return room, nil
}

// DeleteRoom tombstones the id, removes the room's member and invoice
// collections and rewrites the index without it. The room's status
// records are left behind on purpose; readers never reach them once
// the invoices are gone.
func (m *Manager) DeleteRoom(ctx context.Context, roomID int64) error {
	if _, err := m.Room(ctx, roomID); err != nil {
		return err
	}

	deleted, err := kv.GetList[int64](ctx, m.store, kv.DeletedRoomsKey)
	if err != nil {
		return err
	}
	deleted = append(deleted, roomID)
	if err := kv.SetList(ctx, m.store, kv.DeletedRoomsKey, deleted); err != nil {
		return err
	}

	if err := m.store.Remove(ctx, kv.MembersKey(roomID)); err != nil {
		return fmt.Errorf("remove members: %w", err)
	}
	if err := m.store.Remove(ctx, kv.InvoicesKey(roomID)); err != nil {
		return fmt.Errorf("remove invoices: %w", err)
	}

	rooms, err := kv.GetList[core.Room](ctx, m.store, kv.RoomsKey)
	if err != nil {
		return err
	}
	kept := make([]core.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.ID != roomID {
			kept = append(kept, r)
		}
	}
	if err := kv.SetList(ctx, m.store, kv.RoomsKey, kept); err != nil {
		return err
	}

	m.publish(events.New(events.TypeRoomDeleted, roomID, 0))
	m.logger.InfoContext(ctx, "Room deleted",
		log.FieldRoomID, roomID,
		log.FieldOperation, log.OpDelete)
	return nil
}

// SetNextInvoiceDate records when the room's next invoice is due.
func (m *Manager) SetNextInvoiceDate(ctx context.Context, roomID int64, date string) error {
	rooms, err := kv.GetList[core.Room](ctx, m.store, kv.RoomsKey)
	if err != nil {
		return err
	}
	for i := range rooms {
		if rooms[i].ID == roomID {
			rooms[i].NextInvoiceDate = date
			return kv.SetList(ctx, m.store, kv.RoomsKey, rooms)
		}
	}
	return fmt.Errorf("room %d: %w", roomID, core.ErrRoomNotFound)
}

func (m *Manager) deletedIDs(ctx context.Context) (map[int64]bool, error) {
	ids, err := kv.GetList[int64](ctx, m.store, kv.DeletedRoomsKey)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// setMemberCount mirrors the member list length onto the room record.
func (m *Manager) setMemberCount(ctx context.Context, roomID int64, count int) error {
	rooms, err := kv.GetList[core.Room](ctx, m.store, kv.RoomsKey)
	if err != nil {
		return err
	}
	for i := range rooms {
		if rooms[i].ID == roomID {
			rooms[i].MemberCount = count
			return kv.SetList(ctx, m.store, kv.RoomsKey, rooms)
		}
	}
	return nil
}
