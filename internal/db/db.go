package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"room-booking-backend/config"
	"room-booking-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info().Msg("running database migrations")
	if err := db.AutoMigrate(
		&model.Space{},
		&model.AvailabilityBlock{},
		&model.Reservation{},
		&model.ReservationStateLog{},
		&model.OpeningRecord{},
		&model.PushSubscription{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableExclusionConstraint {
		log.Info().Msg("applying range-overlap DDL")
		if err := applyRangeDDL(db); err != nil {
			return nil, err
		}
	}

	log.Info().Msg("database initialization complete")
	return db, nil
}

// ExclusionConstraintName is the durable guard against two approved,
// non-schedule reservations overlapping on the same space. The application
// re-checks overlap before every approval; this constraint closes the race
// window between concurrent writers.
const ExclusionConstraintName = "reservations_no_overlap"

func applyRangeDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// Half-open [) range over the derived period columns, per space.
		"CREATE INDEX IF NOT EXISTS idx_reservations_period ON reservations " +
			"USING GIST (space_id, tstzrange(period_start, period_end, '[)'));",

		"ALTER TABLE reservations ADD CONSTRAINT " + ExclusionConstraintName + " " +
			"EXCLUDE USING GIST (space_id WITH =, tstzrange(period_start, period_end, '[)') WITH &&) " +
			"WHERE (state = 'approved' AND NOT from_schedule);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			// The constraint DDL has no IF NOT EXISTS form; a duplicate on
			// restart is expected.
			if isDuplicate(err) {
				continue
			}
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func isDuplicate(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
