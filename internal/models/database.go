package models

import (
	"fmt"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured primary store.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.LogSQL {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Entities lists every mirrored model in dependency order.
func Entities() []any {
	return []any{
		&Project{},
		&ProjectSettings{},
		&ProjectMember{},
		&ProjectMemberPermission{},
		&ProjectMemberRole{},
		&ProjectMemberPermissionAssignment{},
		&ProjectMemberRoleAssignment{},
		&FinanceAccount{},
		&FinanceTransactions{},
		&Product{},
		&Stock{},
		&Bill{},
		&BillPosition{},
	}
}

// Migrate creates or updates the schema of every table on db.
func Migrate(db *gorm.DB) error {
	tables := append(Entities(), &ChangeEvent{}, &SchedulerLock{})
	return db.AutoMigrate(tables...)
}

func AutoMigrate() error {
	return Migrate(DB)
}

func GetDB() *gorm.DB {
	return DB
}
