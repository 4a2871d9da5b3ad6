package domain

// Identity is the decoded token payload: a snapshot of the user's role and
// permission set taken at login. Capability checks read this snapshot only;
// a permission edit takes effect at the target's next login.
type Identity struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Role        Role         `json:"role"`
	Permissions []Capability `json:"permission"`
}

// Can is a plain set-membership test. There is no wildcard and no role
// hierarchy: an admin without edit_task in the snapshot cannot edit tasks.
func (i *Identity) Can(cap Capability) bool {
	if i == nil {
		return false
	}
	for _, c := range i.Permissions {
		if c == cap {
			return true
		}
	}
	return false
}
