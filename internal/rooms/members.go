package rooms

import (
	"context"
	"fmt"

	"sharinghome/internal/core"
	"sharinghome/internal/directory"
	"sharinghome/internal/events"
	"sharinghome/internal/kv"
	"sharinghome/internal/log"
)

// Members returns a room's member list. Loading repairs legacy records
// in place: phone numbers are normalized to digits and the stock
// placeholder avatar becomes an absent avatar. Repaired lists are
// written back so the migration runs once per record.
func (m *Manager) Members(ctx context.Context, roomID int64) ([]core.Member, error) {
	members, err := kv.GetList[core.Member](ctx, m.store, kv.MembersKey(roomID))
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range members {
		if normalized := directory.NormalizePhone(members[i].PhoneNumber); normalized != members[i].PhoneNumber {
			members[i].PhoneNumber = normalized
			changed = true
		}
		if members[i].Avatar == stockPlaceholderAvatar {
			members[i].Avatar = ""
			changed = true
		}
	}
	if changed {
		if err := kv.SetList(ctx, m.store, kv.MembersKey(roomID), members); err != nil {
			return nil, err
		}
		m.logger.InfoContext(ctx, "Member records repaired",
			log.FieldRoomID, roomID,
			log.FieldOperation, log.OpMigrate)
	}
	return members, nil
}

// AddMember appends a member to the room. The phone is normalized and
// doubles as the name when none is given; an avatar missing from the
// request is filled from the directory. Adding a ROOM_MASTER demotes
// any existing master first, so a room never holds two.
func (m *Manager) AddMember(ctx context.Context, roomID int64, member core.Member) (core.Member, error) {
	if _, err := m.Room(ctx, roomID); err != nil {
		return core.Member{}, err
	}

	member.PhoneNumber = directory.NormalizePhone(member.PhoneNumber)
	if member.PhoneNumber == "" {
		return core.Member{}, core.ErrEmptyPhone
	}
	if member.Name == "" {
		member.Name = member.PhoneNumber
	}
	if member.Role == "" {
		member.Role = core.RoleRoomMember
	}
	if err := member.Validate(); err != nil {
		return core.Member{}, err
	}
	if member.ID == 0 {
		member.ID = core.NewID()
	}
	if member.Avatar == "" {
		ident, err := m.dir.ResolveIdentity(ctx, member.PhoneNumber, nil)
		if err != nil {
			return core.Member{}, err
		}
		member.Avatar = ident.Avatar
	}

	members, err := m.Members(ctx, roomID)
	if err != nil {
		return core.Member{}, err
	}
	if member.Role == core.RoleRoomMaster {
		demoteMasters(members)
	}
	members = append(members, member)
	if err := m.saveMembers(ctx, roomID, members); err != nil {
		return core.Member{}, err
	}

	// Mirror into the global directory; the room role stays room-scoped.
	if err := m.dir.Upsert(ctx, directory.User{
		PhoneNumber: member.PhoneNumber,
		Name:        member.Name,
		Avatar:      member.Avatar,
	}); err != nil {
		return core.Member{}, err
	}

	m.logger.InfoContext(ctx, "Member added",
		log.FieldRoomID, roomID,
		log.FieldMemberID, member.ID,
		log.FieldOperation, log.OpCreate)
	return member, nil
}

// EditMember updates a member's name and phone in place. The stored
// avatar stays with the member unless the edit carries a new one, and
// the role is kept when the edit leaves it blank. Promoting a member
// to ROOM_MASTER demotes any other master. The edit is mirrored into
// the global directory the same way AddMember mirrors an add.
func (m *Manager) EditMember(ctx context.Context, roomID int64, member core.Member) error {
	members, err := m.Members(ctx, roomID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range members {
		if members[i].ID == member.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("member %d: %w", member.ID, core.ErrMemberNotFound)
	}

	member.PhoneNumber = directory.NormalizePhone(member.PhoneNumber)
	if member.Name == "" {
		member.Name = member.PhoneNumber
	}
	if member.Avatar == "" {
		member.Avatar = members[idx].Avatar
	}
	if member.Role == "" {
		member.Role = members[idx].Role
	}
	if err := member.Validate(); err != nil {
		return err
	}
	if member.Role == core.RoleRoomMaster {
		demoteMasters(members)
	}
	members[idx] = member
	if err := m.saveMembers(ctx, roomID, members); err != nil {
		return err
	}

	return m.dir.Upsert(ctx, directory.User{
		PhoneNumber: member.PhoneNumber,
		Name:        member.Name,
		Avatar:      member.Avatar,
	})
}

// AssignRoomMaster makes the given member the room's single master.
// Assigning the current master again is a no-op.
func (m *Manager) AssignRoomMaster(ctx context.Context, roomID, memberID int64) error {
	members, err := m.Members(ctx, roomID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range members {
		if members[i].ID == memberID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("member %d: %w", memberID, core.ErrMemberNotFound)
	}
	if members[idx].Role == core.RoleRoomMaster {
		return nil
	}

	demoteMasters(members)
	members[idx].Role = core.RoleRoomMaster
	if err := m.saveMembers(ctx, roomID, members); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Room master assigned",
		log.FieldRoomID, roomID,
		log.FieldMemberID, memberID,
		log.FieldOperation, log.OpUpdate)
	return nil
}

// DeleteMember removes a member from the room.
func (m *Manager) DeleteMember(ctx context.Context, roomID, memberID int64) error {
	members, err := m.Members(ctx, roomID)
	if err != nil {
		return err
	}

	kept := make([]core.Member, 0, len(members))
	for _, mem := range members {
		if mem.ID != memberID {
			kept = append(kept, mem)
		}
	}
	if len(kept) == len(members) {
		return fmt.Errorf("member %d: %w", memberID, core.ErrMemberNotFound)
	}
	return m.saveMembers(ctx, roomID, kept)
}

// RoomMaster returns the room's master, if it has one.
func (m *Manager) RoomMaster(ctx context.Context, roomID int64) (core.Member, bool, error) {
	members, err := m.Members(ctx, roomID)
	if err != nil {
		return core.Member{}, false, err
	}
	for _, mem := range members {
		if mem.Role == core.RoleRoomMaster {
			return mem, true, nil
		}
	}
	return core.Member{}, false, nil
}

func (m *Manager) saveMembers(ctx context.Context, roomID int64, members []core.Member) error {
	if err := kv.SetList(ctx, m.store, kv.MembersKey(roomID), members); err != nil {
		return err
	}
	if err := m.setMemberCount(ctx, roomID, len(members)); err != nil {
		return err
	}
	m.publish(events.New(events.TypeMembersChanged, roomID, 0))
	return nil
}

func demoteMasters(members []core.Member) {
	for i := range members {
		if members[i].Role == core.RoleRoomMaster {
			members[i].Role = core.RoleRoomMember
		}
	}
}
