package database

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"refractory-tracker/internal/config"
	"refractory-tracker/internal/models"
)

var logger = loggo.GetLogger("database")

// Open connects to the configured database and pings it.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, errors.NotSupportedf("database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s database", cfg.DBDriver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.DBDriver == "sqlite" {
		// A single writer avoids "database is locked" on file databases
		// and keeps :memory: databases on one connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Annotatef(err, "pinging %s database", cfg.DBDriver)
	}

	logger.Infof("connected to %s database", cfg.DBDriver)
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.PurchaseOrderRow{},
		&models.RequirementRow{},
		&models.SupplyEventRow{},
		&models.AuditLog{},
	)
	if err != nil {
		return errors.Annotate(err, "auto migrate")
	}
	logger.Infof("migration complete")
	return nil
}
