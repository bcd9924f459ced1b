// Package store mirrors generated tables into a SQLite database.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spektr-org/usagesim/generator"
	"github.com/spektr-org/usagesim/schema"
)

const batchSize = 500

// User is a users row.
type User struct {
	UserID       int       `gorm:"primaryKey;autoIncrement:false"`
	SignupTime   time.Time `gorm:"not null"`
	Country      string    `gorm:"index"`
	PlatformPref string
}

// Session is a sessions row.
type Session struct {
	SessionID    string    `gorm:"primaryKey"`
	UserID       int       `gorm:"not null;index"`
	SessionStart time.Time `gorm:"not null;index"`
	SessionEnd   time.Time `gorm:"not null"`
	Platform     string
	Country      string
}

// Event is an events row.
type Event struct {
	EventID   string    `gorm:"primaryKey"`
	UserID    int       `gorm:"not null;index"`
	SessionID string    `gorm:"not null;index"`
	EventTime time.Time `gorm:"not null;index"`
	EventType string    `gorm:"index"`
	Feature   string
	Platform  string
	Country   string
	IsNewUser bool
}

// Counts are the row counts per table.
type Counts struct {
	Users    int64
	Sessions int64
	Events   int64
}

// Open connects to the SQLite file at path, creating it if needed.
func Open(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite serializes writers.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Export replaces the users, sessions and events tables with ds in one
// transaction.
func Export(ctx context.Context, db *gorm.DB, ds *generator.Dataset) error {
	if err := db.WithContext(ctx).AutoMigrate(&User{}, &Session{}, &Event{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&Event{}, &Session{}, &User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("truncate: %w", err)
			}
		}

		if rows := usersToRows(ds.Users); len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("insert users: %w", err)
			}
		}
		if rows := sessionsToRows(ds.Sessions); len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("insert sessions: %w", err)
			}
		}
		if rows := eventsToRows(ds.Events); len(rows) > 0 {
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		return nil
	})
}

// Count returns the row count of each table.
func Count(ctx context.Context, db *gorm.DB) (Counts, error) {
	var c Counts
	db = db.WithContext(ctx)
	if err := db.Model(&User{}).Count(&c.Users).Error; err != nil {
		return c, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&Session{}).Count(&c.Sessions).Error; err != nil {
		return c, fmt.Errorf("count sessions: %w", err)
	}
	if err := db.Model(&Event{}).Count(&c.Events).Error; err != nil {
		return c, fmt.Errorf("count events: %w", err)
	}
	return c, nil
}

func usersToRows(users []schema.User) []User {
	rows := make([]User, len(users))
	for i, u := range users {
		rows[i] = User{
			UserID:       u.UserID,
			SignupTime:   u.SignupTime,
			Country:      u.Country,
			PlatformPref: u.PlatformPref,
		}
	}
	return rows
}

func sessionsToRows(sessions []schema.Session) []Session {
	rows := make([]Session, len(sessions))
	for i, s := range sessions {
		rows[i] = Session{
			SessionID:    s.SessionID,
			UserID:       s.UserID,
			SessionStart: s.SessionStart,
			SessionEnd:   s.SessionEnd,
			Platform:     s.Platform,
			Country:      s.Country,
		}
	}
	return rows
}

func eventsToRows(events []schema.Event) []Event {
	rows := make([]Event, len(events))
	for i, e := range events {
		rows[i] = Event{
			EventID:   e.EventID,
			UserID:    e.UserID,
			SessionID: e.SessionID,
			EventTime: e.EventTime,
			EventType: e.EventType,
			Feature:   e.Feature,
			Platform:  e.Platform,
			Country:   e.Country,
			IsNewUser: e.IsNewUser,
		}
	}
	return rows
}
