package domain

// Role defines the sender of a session message.
type Role string

const (
	// RoleUser indicates a requirement typed by the user.
	RoleUser Role = "user"
	// RoleBot indicates a diagram source produced by a generator.
	RoleBot Role = "bot"
	// RolePlaceholder marks a generation in progress. Placeholders are
	// transient: they are never exported and never sent to a model.
	RolePlaceholder Role = "placeholder"
)

// Persisted reports whether messages with this role belong in a session file.
func (r Role) Persisted() bool {
	return r == RoleUser || r == RoleBot
}
