package transport

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token alongside the user record.
type LoginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// UserUpdateRequest patches a user. Absent fields are left untouched;
// username is not patchable.
type UserUpdateRequest struct {
	Role        *string   `json:"role"`
	IsActive    *bool     `json:"is_active"`
	Permissions *[]string `json:"permissions"`
}

type PermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type TaskCreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AssignedTo  []string `json:"assigned_to"`
}

// TaskUpdateRequest patches a task. A payload carrying only status rides
// the complete_task permission path.
type TaskUpdateRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Status      *string   `json:"status"`
	AssignedTo  *[]string `json:"assigned_to"`
}
