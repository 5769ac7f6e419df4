package domain

import "time"

// User represents a marketplace identity without persistence concerns.
// A user is never hard-deleted; DeletedAt marks it inactive and the
// deletion cascades into items, messages and group memberships.
type User struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Wallets     []Wallet   `json:"wallets,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Active reports whether the user has not been soft-deleted.
func (u User) Active() bool {
	return u.DeletedAt == nil
}

// Wallet is an address owned by exactly one user. The nonce is embedded
// in the login challenge and rotated after each successful connect.
type Wallet struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Address   string     `json:"address"`
	Nonce     string     `json:"-"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Message is a direct message between users. It participates in the
// user-deletion cascade: sent messages are stamped with the sender's
// deletion time.
type Message struct {
	ID        string     `json:"id"`
	FromID    string     `json:"fromId"`
	ToID      string     `json:"toId"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
