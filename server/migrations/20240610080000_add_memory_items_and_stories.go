package migrations

import (
	"time"

	"gorm.io/gorm"
)

type memoryItemV4 struct {
	AuditColumns
	FamilyID      uint  `gorm:"not null;index"`
	MemberID      *uint `gorm:"index"`
	FamilyMediaID *uint
	Title         string `gorm:"size:200;not null"`
	Description   string `gorm:"type:text"`
	HappenedAt    *time.Time
	Location      string `gorm:"size:255"`
	EmotionalTag  string `gorm:"size:50"`
}

func (memoryItemV4) TableName() string { return "memory_items" }

type memberStoryV4 struct {
	AuditColumns
	MemberID      uint   `gorm:"not null;index"`
	Title         string `gorm:"size:200;not null"`
	Content       string `gorm:"type:text"`
	StoryStyle    string `gorm:"size:50"`
	Perspective   string `gorm:"size:50"`
	IsAIGenerated bool   `gorm:"column:is_ai_generated;not null"`
}

func (memberStoryV4) TableName() string { return "member_stories" }

func init() {
	register(Migration{
		ID: "20240610080000_add_memory_items_and_stories",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &memoryItemV4{}, &memberStoryV4{})
		},
		Down: func(tx *gorm.DB) error {
			return dropTables(tx, &memoryItemV4{}, &memberStoryV4{})
		},
	})
}
