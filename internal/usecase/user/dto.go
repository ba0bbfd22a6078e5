package user

// Page size bounds for ListUsers
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name  string `validate:"required,max=255"`
	Email string `validate:"required,email,max=255"`
}

// CreateUserResponse represents the created user, including its generated ID.
type CreateUserResponse struct {
	User
}

// UpdateUserRequest represents a partial update. Nil fields are left unchanged.
type UpdateUserRequest struct {
	ID    int64   `validate:"gt=0"`
	Name  *string `validate:"omitnil,min=1,max=255"`
	Email *string `validate:"omitnil,email,max=255"`
}

// UpdateUserResponse represents the user after the update.
type UpdateUserResponse struct {
	User
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64 `validate:"gt=0"`
}

// DeleteUserResponse represents the response payload after deleting a user.
type DeleteUserResponse struct {
	ID int64
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64 `validate:"gt=0"`
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	User
}

// ListUsersRequest represents the request payload for listing users.
// Filters are optional and combined with AND.
type ListUsersRequest struct {
	Email          string
	NameContains   string
	NameStartsWith string
	Limit          int `validate:"min=1,max=100"`
	Offset         int `validate:"min=0"`
}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users      []User
	Pagination *Pagination
}

// Pagination represents pagination information for list responses.
type Pagination struct {
	Total   int64
	Limit   int
	Offset  int
	HasNext bool
	HasPrev bool
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID    int64
	Name  string
	Email string
}
