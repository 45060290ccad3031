// Package directory maintains the phone-keyed user directory and the
// local session profile, and reconciles the two into display identities.
package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sharinghome/internal/cache"
	"sharinghome/internal/core"
	"sharinghome/internal/kv"
	"sharinghome/internal/log"
)

// User is a global directory entry. PhoneNumber holds the canonical
// digits-only phone; Phone is the legacy field name still found in
// older persisted entries.
type User struct {
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Name        string    `json:"name,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Role        core.Role `json:"role,omitempty"`
}

// CanonicalPhone returns the normalized phone from whichever field is set.
func (u User) CanonicalPhone() string {
	if u.PhoneNumber != "" {
		return NormalizePhone(u.PhoneNumber)
	}
	return NormalizePhone(u.Phone)
}

// profileRecord is the session profile document. Older records carry
// firstName/lastName instead of a single name.
type profileRecord struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (p profileRecord) displayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// NormalizePhone strips everything but digits, so "+62 812-3456" and
// "0812 3456" compare on digits alone. The digits-only form is the
// canonical identity key everywhere in this module.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Identity is a resolved display identity for a phone number.
type Identity struct {
	Name   string
	Avatar string
	Role   core.Role
}

const (
	identityCacheSize = 256
	identityCacheTTL  = 5 * time.Minute
)

// Directory reads and writes the users list and session profile keys.
type Directory struct {
	store  kv.Store
	cache  *cache.LRUCache[Identity]
	logger *log.Logger
}

func New(store kv.Store, logger *log.Logger) *Directory {
	return &Directory{
		store:  store,
		cache:  cache.NewLRUCache[Identity](identityCacheSize, identityCacheTTL),
		logger: logger.WithComponent(log.ComponentDirectory),
	}
}

// Users returns the global directory list.
func (d *Directory) Users(ctx context.Context) ([]User, error) {
	return kv.GetList[User](ctx, d.store, kv.UsersKey)
}

func (d *Directory) saveUsers(ctx context.Context, users []User) error {
	return kv.SetList(ctx, d.store, kv.UsersKey, users)
}

// FindByPhone looks up a directory entry by exact normalized phone.
func (d *Directory) FindByPhone(ctx context.Context, phone string) (User, bool, error) {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return User{}, false, nil
	}
	users, err := d.Users(ctx)
	if err != nil {
		return User{}, false, err
	}
	for _, u := range users {
		if u.CanonicalPhone() == normalized {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

// Upsert merges the given entry into the directory, keyed by normalized
// phone. Only non-empty fields overwrite the stored entry, so a partial
// update never erases a known name or avatar. ROOM_MASTER is a
// room-scoped role and is never written to the global directory.
func (d *Directory) Upsert(ctx context.Context, user User) error {
	normalized := user.CanonicalPhone()
	if normalized == "" {
		return core.ErrEmptyPhone
	}
	if user.Role == core.RoleRoomMaster {
		user.Role = ""
	}

	users, err := d.Users(ctx)
	if err != nil {
		return err
	}

	found := false
	for i, existing := range users {
		if existing.CanonicalPhone() != normalized {
			continue
		}
		found = true
		users[i].PhoneNumber = normalized
		users[i].Phone = ""
		if user.Name != "" {
			users[i].Name = user.Name
		}
		if user.Avatar != "" {
			users[i].Avatar = user.Avatar
		}
		if user.Role != "" {
			users[i].Role = user.Role
		}
		break
	}
	if !found {
		users = append(users, User{
			PhoneNumber: normalized,
			Name:        user.Name,
			Avatar:      user.Avatar,
			Role:        user.Role,
		})
	}

	if err := d.saveUsers(ctx, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	d.cache.Delete(normalized)

	d.logger.InfoContext(ctx, "Directory entry upserted",
		log.FieldPhone, normalized,
		log.FieldOperation, log.OpUpdate)
	return nil
}

// SetGlobalRole records a user's global role. ROOM_MASTER is rejected:
// mastership exists only inside a room's member list.
func (d *Directory) SetGlobalRole(ctx context.Context, phone string, role core.Role) error {
	if role == core.RoleRoomMaster {
		return fmt.Errorf("role %s is room-scoped", role)
	}
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}
	return d.Upsert(ctx, User{PhoneNumber: phone, Role: role})
}

// SessionPhone returns the normalized phone of the local session user.
func (d *Directory) SessionPhone(ctx context.Context) (string, error) {
	phone, _, err := d.store.Get(ctx, kv.UserPhoneKey)
	if err != nil {
		return "", fmt.Errorf("get session phone: %w", err)
	}
	return NormalizePhone(phone), nil
}

func (d *Directory) SetSessionPhone(ctx context.Context, phone string) error {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return core.ErrEmptyPhone
	}
	return d.store.Set(ctx, kv.UserPhoneKey, normalized)
}

// SessionRole returns the local session role, defaulting to ROOM_MEMBER.
func (d *Directory) SessionRole(ctx context.Context) (core.Role, error) {
	raw, ok, err := d.store.Get(ctx, kv.UserRoleKey)
	if err != nil {
		return "", fmt.Errorf("get session role: %w", err)
	}
	role := core.Role(raw)
	if !ok || !role.IsValid() {
		return core.RoleRoomMember, nil
	}
	return role, nil
}

func (d *Directory) SetSessionRole(ctx context.Context, role core.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q", role)
	}
	return d.store.Set(ctx, kv.UserRoleKey, string(role))
}

// ProfileName returns the locally edited display name for a phone, if any.
func (d *Directory) ProfileName(ctx context.Context, phone string) (string, bool, error) {
	normalized := NormalizePhone(phone)
	rec, ok, err := kv.GetJSON[profileRecord](ctx, d.store, kv.ProfileKey(normalized))
	if err != nil || !ok {
		return "", false, err
	}
	name := rec.displayName()
	return name, name != "", nil
}

// ProfilePhoto returns the locally stored profile photo for a phone, if any.
func (d *Directory) ProfilePhoto(ctx context.Context, phone string) (string, bool, error) {
	normalized := NormalizePhone(phone)
	photo, ok, err := d.store.Get(ctx, kv.ProfilePhotoKey(normalized))
	if err != nil {
		return "", false, fmt.Errorf("get profile photo: %w", err)
	}
	return photo, ok && photo != "", nil
}

// SaveProfileName stores the session user's display name and mirrors it
// into the global directory so other views pick it up.
func (d *Directory) SaveProfileName(ctx context.Context, phone, name string) error {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return core.ErrEmptyPhone
	}
	if strings.TrimSpace(name) == "" {
		return core.ErrEmptyName
	}
	if err := kv.SetJSON(ctx, d.store, kv.ProfileKey(normalized), profileRecord{Name: name}); err != nil {
		return err
	}
	d.cache.Delete(normalized)
	return d.Upsert(ctx, User{PhoneNumber: normalized, Name: name})
}

// SaveProfilePhoto stores the session user's photo and mirrors it into
// the global directory.
func (d *Directory) SaveProfilePhoto(ctx context.Context, phone, photo string) error {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return core.ErrEmptyPhone
	}
	if err := d.store.Set(ctx, kv.ProfilePhotoKey(normalized), photo); err != nil {
		return fmt.Errorf("set profile photo: %w", err)
	}
	d.cache.Delete(normalized)
	return d.Upsert(ctx, User{PhoneNumber: normalized, Avatar: photo})
}
