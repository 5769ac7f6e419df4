package domain

// UserChanges carries the optional profile fields of a user update.
// Role changes go through the role authority, not here.
type UserChanges struct {
	DisplayName *string
	Email       *string
}

// GroupChanges carries the fields an owner may edit. Visibility and
// ownership are immutable after creation.
type GroupChanges struct {
	Name        *string
	Description *string
	ImageURL    *string
}
