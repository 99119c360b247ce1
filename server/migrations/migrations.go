// Package migrations holds the versioned famtree schema. Each migration is a
// frozen Up/Down pair, applied ids are recorded in schema_migrations.
package migrations

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var registry []Migration

var ErrUnknownMigration = errors.New("schema_migrations references a migration this binary does not know")

type Migration struct {
	ID   string
	Up   func(tx *gorm.DB) error
	Down func(tx *gorm.DB) error
}

type AppliedMigration struct {
	ID        string    `gorm:"primarykey;size:150"`
	AppliedAt time.Time `gorm:"not null"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

type MigrationStatus struct {
	ID        string     `json:"id"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// All returns every known migration in apply order.
func All() []Migration {
	all := make([]Migration, len(registry))
	copy(all, registry)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Up applies every pending migration in order and returns the applied ids.
func Up(db *gorm.DB) ([]string, error) {
	applied, err := appliedMigrations(db)
	if err != nil {
		return nil, err
	}

	done := []string{}
	for _, m := range All() {
		if _, ok := applied[m.ID]; ok {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&AppliedMigration{ID: m.ID, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return done, errors.Wrapf(err, "migration %s up", m.ID)
		}

		done = append(done, m.ID)
	}

	return done, nil
}

// Down reverts the 'steps' most recently applied migrations.
func Down(db *gorm.DB, steps int) ([]string, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return nil, err
	}

	byID := map[string]Migration{}
	for _, m := range All() {
		byID[m.ID] = m
	}

	ids := make([]string, 0, len(applied))
	for id := range applied {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	reverted := []string{}
	for _, id := range ids {
		if len(reverted) == steps {
			break
		}

		m, ok := byID[id]
		if !ok {
			return reverted, errors.Wrap(ErrUnknownMigration, id)
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&AppliedMigration{ID: m.ID}).Error
		})
		if err != nil {
			return reverted, errors.Wrapf(err, "migration %s down", m.ID)
		}

		reverted = append(reverted, m.ID)
	}

	return reverted, nil
}

func Status(db *gorm.DB) ([]MigrationStatus, error) {
	applied, err := appliedMigrations(db)
	if err != nil {
		return nil, err
	}

	statuses := []MigrationStatus{}
	for _, m := range All() {
		status := MigrationStatus{ID: m.ID}
		if at, ok := applied[m.ID]; ok {
			at := at
			status.Applied = true
			status.AppliedAt = &at
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func register(m Migration) {
	registry = append(registry, m)
}

func appliedMigrations(db *gorm.DB) (map[string]time.Time, error) {
	if err := db.AutoMigrate(&AppliedMigration{}); err != nil {
		return nil, errors.Wrap(err, "create schema_migrations")
	}

	rows := []AppliedMigration{}
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "read schema_migrations")
	}

	applied := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		applied[row.ID] = row.AppliedAt
	}
	return applied, nil
}

func createTables(tx *gorm.DB, tables ...interface{}) error {
	for _, table := range tables {
		if err := tx.Migrator().CreateTable(table); err != nil {
			return err
		}
	}
	return nil
}

// dropTables drops in reverse order so dependants go first.
func dropTables(tx *gorm.DB, tables ...interface{}) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if err := tx.Migrator().DropTable(tables[i]); err != nil {
			return err
		}
	}
	return nil
}
