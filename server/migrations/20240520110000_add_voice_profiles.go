package migrations

import "gorm.io/gorm"

type voiceProfileV3 struct {
	AuditColumns
	MemberID        uint   `gorm:"not null;index"`
	Label           string `gorm:"size:100;not null"`
	AudioURL        string `gorm:"size:500"`
	DurationSeconds float64
	Language        string `gorm:"size:10"`
	Consent         bool   `gorm:"not null"`
	Status          string `gorm:"size:20;not null"`
}

func (voiceProfileV3) TableName() string { return "voice_profiles" }

func init() {
	register(Migration{
		ID: "20240520110000_add_voice_profiles",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &voiceProfileV3{})
		},
		Down: func(tx *gorm.DB) error {
			return dropTables(tx, &voiceProfileV3{})
		},
	})
}
