package migrations

import "gorm.io/gorm"

type familyV5 struct {
	ReminderPhone    string `gorm:"size:20"`
	RemindersEnabled bool   `gorm:"not null;default:false"`
}

func (familyV5) TableName() string { return "families" }

func init() {
	register(Migration{
		ID: "20240702120000_add_family_reminders",
		Up: func(tx *gorm.DB) error {
			if err := tx.Migrator().AddColumn(&familyV5{}, "ReminderPhone"); err != nil {
				return err
			}
			return tx.Migrator().AddColumn(&familyV5{}, "RemindersEnabled")
		},
		Down: func(tx *gorm.DB) error {
			if err := tx.Migrator().DropColumn(&familyV5{}, "RemindersEnabled"); err != nil {
				return err
			}
			return tx.Migrator().DropColumn(&familyV5{}, "ReminderPhone")
		},
	})
}
