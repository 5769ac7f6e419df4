package domain

import "time"

// Group is owned by exactly one user and moves through a two-state
// lifecycle: active, then soft-deleted (terminal). Ownership is the
// OwnerID field; the scoped GROUP_OWNER role mirrors it but is never
// the source of truth.
type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	IsPublic    bool       `json:"isPublic"`
	OwnerID     string     `json:"ownerId"`
	Members     []User     `json:"members,omitempty"`
	Items       []Item     `json:"items,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Active reports whether the group has not been soft-deleted.
func (g Group) Active() bool {
	return g.DeletedAt == nil
}

// Item is listed by exactly one seller and attached to at most one
// group. Detaching an item from a group clears GroupID but keeps the
// item alive.
type Item struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Currency    string     `json:"currency"`
	SellerID    string     `json:"sellerId"`
	GroupID     *string    `json:"groupId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// Role is a catalog entry naming a capability. The catalog is mutated
// only by admins; assignments live in the pivot relations.
type Role struct {
	ID          string   `json:"id"`
	Name        RoleName `json:"name"`
	Description string   `json:"description,omitempty"`
}

// GroupEvent is published on the realtime channel when a group's
// membership or lifecycle changes.
type GroupEvent struct {
	Type    string    `json:"type"`
	GroupID string    `json:"groupId"`
	UserID  string    `json:"userId,omitempty"`
	At      time.Time `json:"at"`
}
