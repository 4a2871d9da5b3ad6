package domain

import "time"

// Role is the coarse actor category used for dashboard routing and the
// hardcoded admin protections. It is distinct from capabilities: holding
// the admin role grants no capability by itself.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSuperuser Role = "superuser"
	RoleUser      Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSuperuser, RoleUser:
		return true
	}
	return false
}

// Elevated reports whether the role may see records it does not own.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperuser
}

// Capability is one token from the fixed permission vocabulary. The set is
// closed; new checks are added here, not at runtime.
type Capability string

const (
	CapAddUser        Capability = "add_user"
	CapEditUser       Capability = "edit_user"
	CapDeleteUser     Capability = "delete_user"
	CapAddTask        Capability = "add_task"
	CapEditTask       Capability = "edit_task"
	CapDeleteTask     Capability = "delete_task"
	CapEditPermission Capability = "edit_permission"
	CapCompleteTask   Capability = "complete_task"
)

// AllCapabilities lists every member of the vocabulary, in declaration order.
var AllCapabilities = []Capability{
	CapAddUser,
	CapEditUser,
	CapDeleteUser,
	CapAddTask,
	CapEditTask,
	CapDeleteTask,
	CapEditPermission,
	CapCompleteTask,
}

func (c Capability) Valid() bool {
	for _, known := range AllCapabilities {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultPermissions is the set every user starts with, and the set an
// empty permission list is coerced back to. A user record never persists
// with no permissions.
func DefaultPermissions() []Capability {
	return []Capability{CapCompleteTask}
}

// User represents an account record. Tasks is denormalized: it must mirror
// the set of tasks whose AssignedTo contains this user's id.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role"`
	IsActive     bool         `json:"is_active"`
	Permissions  []Capability `json:"permissions"`
	Tasks        []string     `json:"tasks"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NormalizePermissions drops unknown capabilities and duplicates and
// coerces an empty result to the default set.
func (u *User) NormalizePermissions() {
	u.Permissions = NormalizeCapabilities(u.Permissions)
}

// HasTask reports whether taskID is present in the user's task list.
func (u *User) HasTask(taskID string) bool {
	for _, id := range u.Tasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// NormalizeCapabilities returns caps with unknown entries and duplicates
// removed, substituting the default set when nothing valid remains.
func NormalizeCapabilities(caps []Capability) []Capability {
	seen := make(map[Capability]struct{}, len(caps))
	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if !c.Valid() {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return DefaultPermissions()
	}
	return out
}
