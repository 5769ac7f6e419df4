package models

import (
	"time"
)

type User struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	DisplayName string     `json:"displayName" gorm:"type:text"`
	Email       *string    `json:"email" gorm:"type:text"`
	Wallets     []Wallet   `json:"wallets" gorm:"foreignKey:UserID"`
	CDate       time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeletedAt   *time.Time `json:"deletedAt" gorm:"type:timestamp with time zone;index"`
}

type Wallet struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string     `json:"userId" gorm:"type:uuid;not null;index"`
	User      User       `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Address   string     `json:"address" gorm:"type:text;index:wallet_address,unique"`
	Nonce     string     `json:"-" gorm:"type:text"`
	CDate     time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeletedAt *time.Time `json:"deletedAt" gorm:"type:timestamp with time zone"`
}

type Role struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string `json:"name" gorm:"type:text;index:role_name,unique"`
	Description string `json:"description" gorm:"type:text"`
}

type Message struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid"`
	FromID    string     `json:"fromId" gorm:"type:uuid;not null;index"`
	ToID      string     `json:"toId" gorm:"type:uuid;not null;index"`
	Body      string     `json:"body" gorm:"type:text"`
	CDate     time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	DeletedAt *time.Time `json:"deletedAt" gorm:"type:timestamp with time zone;index"`
}
