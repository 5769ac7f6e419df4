package models

import (
	"time"
)

type Group struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string     `json:"name" gorm:"type:text;not null"`
	Description string     `json:"description" gorm:"type:text"`
	ImageURL    string     `json:"imageUrl" gorm:"type:text"`
	IsPublic    bool       `json:"isPublic" gorm:"type:boolean;not null;default:false;index"`
	OwnerID     string     `json:"ownerId" gorm:"type:uuid;not null;index"`
	Owner       User       `json:"-" gorm:"foreignKey:OwnerID"`
	Members     []User     `json:"members" gorm:"many2many:group_members;"`
	Items       []Item     `json:"items" gorm:"foreignKey:GroupID"`
	CDate       time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeletedAt   *time.Time `json:"deletedAt" gorm:"type:timestamp with time zone;index"`
}

type Item struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string     `json:"title" gorm:"type:text;not null"`
	Description string     `json:"description" gorm:"type:text"`
	Price       float64    `json:"price" gorm:"type:double precision;not null"`
	Currency    string     `json:"currency" gorm:"type:text"`
	SellerID    string     `json:"sellerId" gorm:"type:uuid;not null;index"`
	Seller      User       `json:"-" gorm:"foreignKey:SellerID"`
	GroupID     *string    `json:"groupId" gorm:"type:uuid;index"`
	CDate       time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeletedAt   *time.Time `json:"deletedAt" gorm:"type:timestamp with time zone;index"`
}

// UserRole is the global-scope pivot. (UserID, RoleID) is unique.
type UserRole struct {
	UserID string `json:"userId" gorm:"type:uuid;primaryKey"`
	RoleID string `json:"roleId" gorm:"type:uuid;primaryKey"`
	Role   Role   `json:"role" gorm:"constraint:OnDelete:CASCADE;"`
}

// GroupRole is the group-scope pivot. (UserID, RoleID, GroupID) is
// unique; a user can hold GROUP_OWNER in one group and GROUP_MEMBER in
// another at the same time.
type GroupRole struct {
	UserID  string `json:"userId" gorm:"type:uuid;primaryKey"`
	RoleID  string `json:"roleId" gorm:"type:uuid;primaryKey"`
	GroupID string `json:"groupId" gorm:"type:uuid;primaryKey"`
	Role    Role   `json:"role" gorm:"constraint:OnDelete:CASCADE;"`
}
