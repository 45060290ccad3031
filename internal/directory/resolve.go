package directory

import (
	"context"
	"strings"

	"sharinghome/internal/core"
	"sharinghome/internal/log"
)

// ResolveIdentity builds the display identity for a phone number.
// Name and avatar follow a strict precedence: the locally edited
// profile wins, then the global directory entry, then the matching
// room member record, then the phone number itself as a last-resort
// name. Role comes from the room membership when the phone belongs to
// one of the given members, otherwise from the directory entry.
//
// Room members are consulted only for the list passed in; a phone is
// never matched against members of other rooms.
func (d *Directory) ResolveIdentity(ctx context.Context, phone string, roomMembers []core.Member) (Identity, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return Identity{Role: core.RoleRoomMember}, nil
	}

	ident, cached, err := d.globalIdentity(ctx, normalized)
	if err != nil {
		return Identity{}, err
	}

	member, memberFound := exactMember(normalized, roomMembers)
	if memberFound {
		if ident.Name == "" {
			ident.Name = member.Name
		}
		if ident.Avatar == "" {
			ident.Avatar = member.Avatar
		}
		ident.Role = member.Role
	}
	if ident.Name == "" {
		ident.Name = normalized
	}
	if ident.Role == "" {
		ident.Role = core.RoleRoomMember
	}

	if !cached {
		d.logger.DebugContext(ctx, "Identity resolved",
			log.FieldPhone, normalized,
			log.FieldOperation, log.OpResolve)
	}
	return ident, nil
}

// globalIdentity resolves the room-independent part: local profile
// overrides first, then the directory entry. Results are cached per
// phone; mutating calls invalidate the entry.
func (d *Directory) globalIdentity(ctx context.Context, normalized string) (Identity, bool, error) {
	if ident, ok := d.cache.Get(normalized); ok {
		return ident, true, nil
	}

	var ident Identity

	name, ok, err := d.ProfileName(ctx, normalized)
	if err != nil {
		return Identity{}, false, err
	}
	if ok {
		ident.Name = name
	}
	photo, ok, err := d.ProfilePhoto(ctx, normalized)
	if err != nil {
		return Identity{}, false, err
	}
	if ok {
		ident.Avatar = photo
	}

	user, ok, err := d.FindByPhone(ctx, normalized)
	if err != nil {
		return Identity{}, false, err
	}
	if ok {
		if ident.Name == "" {
			ident.Name = user.Name
		}
		if ident.Avatar == "" {
			ident.Avatar = user.Avatar
		}
		ident.Role = user.Role
	}

	d.cache.Set(normalized, ident)
	return ident, false, nil
}

func exactMember(normalized string, members []core.Member) (core.Member, bool) {
	for _, m := range members {
		if NormalizePhone(m.PhoneNumber) == normalized {
			return m, true
		}
	}
	return core.Member{}, false
}

// SearchMember finds a room member by phone using progressively looser
// matching: exact, then suffix either way, then substring, then the
// last seven digits. Looser rules exist only for search; identity
// resolution always matches exactly.
func SearchMember(phone string, members []core.Member) (core.Member, bool) {
	query := NormalizePhone(phone)
	if query == "" {
		return core.Member{}, false
	}

	if m, ok := exactMember(query, members); ok {
		return m, true
	}
	for _, m := range members {
		candidate := NormalizePhone(m.PhoneNumber)
		if candidate == "" {
			continue
		}
		if strings.HasSuffix(candidate, query) || strings.HasSuffix(query, candidate) {
			return m, true
		}
	}
	for _, m := range members {
		candidate := NormalizePhone(m.PhoneNumber)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
			return m, true
		}
	}
	if len(query) >= 7 {
		tail := query[len(query)-7:]
		for _, m := range members {
			candidate := NormalizePhone(m.PhoneNumber)
			if len(candidate) >= 7 && candidate[len(candidate)-7:] == tail {
				return m, true
			}
		}
	}
	return core.Member{}, false
}
