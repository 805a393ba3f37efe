package models

// Person is a named participant in a group.
type Person struct {
	// ID is the unique identifier for the person (UUID format).
	ID string

	// GroupID is the group that owns this person.
	GroupID string

	// Name is the display name shown to the group.
	Name string

	// UserID links the person to a real account. Empty means the person is an
	// unclaimed placeholder that has never logged in.
	UserID string

	// Archived is nil while the person is active. Archived people are
	// logically deleted but kept for history and audit.
	Archived *Archival

	// CreatedAt is the Unix timestamp when the person was created.
	CreatedAt int64
}

// Archival records when and by whom a person was archived.
type Archival struct {
	// At is the Unix timestamp of the archive.
	At int64

	// By is the user ID of the account that archived the person.
	By string
}

// IsClaimed reports whether the person is tied to a real account.
func (p *Person) IsClaimed() bool {
	return p.UserID != ""
}

// IsArchived reports whether the person has been archived.
func (p *Person) IsArchived() bool {
	return p.Archived != nil
}
