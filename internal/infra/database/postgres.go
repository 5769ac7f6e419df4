package database

import (
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yumeworks/agora/internal/domain"
	"github.com/yumeworks/agora/internal/infra/database/models"
)

func NewPostgres(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	return db, err
}

func MigratePostgres(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.Role{},
		&models.UserRole{},
		&models.GroupRole{},
		&models.Group{},
		&models.Item{},
		&models.Message{},
	)
	if err != nil {
		return err
	}
	return SeedRoles(db)
}

// SeedRoles inserts the built-in role catalog. Existing rows win, so
// re-running migration never duplicates or overwrites a role.
func SeedRoles(db *gorm.DB) error {
	rows := CatalogRoles()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error
}

// CatalogRoles is the closed role set every deployment starts with.
func CatalogRoles() []models.Role {
	return []models.Role{
		{ID: uuid.NewString(), Name: string(domain.RoleAdmin), Description: "full administrative access"},
		{ID: uuid.NewString(), Name: string(domain.RoleUser), Description: "default role for every account"},
		{ID: uuid.NewString(), Name: string(domain.RoleGroupOwner), Description: "owns a group"},
		{ID: uuid.NewString(), Name: string(domain.RoleGroupMember), Description: "member of a group"},
	}
}
