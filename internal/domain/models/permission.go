package models

import "fmt"

// Perm is a bit set of gallery capabilities.
type Perm int

const (
	PermShow   Perm = 2
	PermRead   Perm = 4
	PermEdit   Perm = 8
	PermDelete Perm = 16

	PermAll = PermShow | PermRead | PermEdit | PermDelete
)

// Permission level names used by the preference settings.
const (
	LevelNone   = "none"
	LevelRead   = "read"
	LevelEdit   = "edit"
	LevelDelete = "delete"
)

// Permission holds every grant attached to one gallery.
type Permission struct {
	Creator Perm            `json:"creator"`
	Default Perm            `json:"default"`
	Guest   Perm            `json:"guest"`
	Users   map[string]Perm `json:"users,omitempty"`
	Groups  map[string]Perm `json:"groups,omitempty"`
}

func NewPermission() Permission {
	return Permission{
		Users:  make(map[string]Perm),
		Groups: make(map[string]Perm),
	}
}

func (p *Permission) AddDefaultPermission(perm Perm) {
	p.Default |= perm
}

func (p *Permission) AddGuestPermission(perm Perm) {
	p.Guest |= perm
}

func (p *Permission) AddCreatorPermission(perm Perm) {
	p.Creator |= perm
}

func (p *Permission) AddUserPermission(user string, perm Perm) {
	if p.Users == nil {
		p.Users = make(map[string]Perm)
	}
	p.Users[user] |= perm
}

func (p *Permission) AddGroupPermission(group string, perm Perm) {
	if p.Groups == nil {
		p.Groups = make(map[string]Perm)
	}
	p.Groups[group] |= perm
}

// Has reports whether user, member of groups, holds perm on a gallery
// owned by owner. An empty user is a guest.
func (p Permission) Has(owner, user string, groups []string, perm Perm) bool {
	if user != "" && user == owner {
		return true
	}

	if user == "" {
		return p.Guest&perm != 0
	}

	if p.Users[user]&perm != 0 {
		return true
	}

	for _, g := range groups {
		if p.Groups[g]&perm != 0 {
			return true
		}
	}

	return p.Default&perm != 0
}

// Clone returns a deep copy so callers can mutate grants safely.
func (p Permission) Clone() Permission {
	c := Permission{
		Creator: p.Creator,
		Default: p.Default,
		Guest:   p.Guest,
		Users:   make(map[string]Perm, len(p.Users)),
		Groups:  make(map[string]Perm, len(p.Groups)),
	}
	for k, v := range p.Users {
		c.Users[k] = v
	}
	for k, v := range p.Groups {
		c.Groups[k] = v
	}

	return c
}

// UserLevel converts the logged-in user default preference. It has no
// delete level.
func UserLevel(level string) (Perm, error) {
	switch level {
	case LevelRead:
		return PermShow | PermRead, nil
	case LevelEdit:
		return PermShow | PermRead | PermEdit, nil
	case LevelNone, "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown user permission level %q", level)
	}
}

// GuestLevel converts the guest default preference.
func GuestLevel(level string) (Perm, error) {
	switch level {
	case LevelRead:
		return PermShow | PermRead, nil
	case LevelNone, "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown guest permission level %q", level)
	}
}

// GroupLevel converts the group default preference.
func GroupLevel(level string) (Perm, error) {
	switch level {
	case LevelRead:
		return PermShow | PermRead, nil
	case LevelEdit:
		return PermShow | PermRead | PermEdit, nil
	case LevelDelete:
		return PermAll, nil
	case LevelNone, "":
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown group permission level %q", level)
	}
}
