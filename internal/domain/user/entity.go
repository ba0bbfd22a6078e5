package user

// User represents a user entity in the system.
type User struct {
	ID    int64  `json:"id"`    // ID is the unique identifier for the user, assigned on insert
	Name  string `json:"name"`  // Name is the full name of the user
	Email string `json:"email"` // Email is the unique email address of the user
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Name  *string
	Email *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil
}

// Apply returns a copy of u with the patch fields applied.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	return u
}
