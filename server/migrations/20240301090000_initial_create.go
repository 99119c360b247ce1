package migrations

import (
	"time"

	"gorm.io/gorm"
)

type familyV1 struct {
	AuditColumns
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"type:text"`
	Address     string `gorm:"size:255"`
	AvatarURL   string `gorm:"size:500"`
	Visibility  string `gorm:"size:20;not null"`
}

func (familyV1) TableName() string { return "families" }

type memberV1 struct {
	AuditColumns
	FamilyID     uint   `gorm:"not null;index"`
	FirstName    string `gorm:"size:100;not null"`
	LastName     string `gorm:"size:100;not null"`
	Nickname     string `gorm:"size:100"`
	Gender       string `gorm:"size:10"`
	DateOfBirth  *time.Time
	DateOfDeath  *time.Time
	PlaceOfBirth string `gorm:"size:255"`
	PlaceOfDeath string `gorm:"size:255"`
	Occupation   string `gorm:"size:100"`
	Biography    string `gorm:"type:text"`
	AvatarURL    string `gorm:"size:500"`
	IsRoot       bool   `gorm:"not null"`
}

func (memberV1) TableName() string { return "members" }

type relationshipV1 struct {
	AuditColumns
	FamilyID       uint   `gorm:"not null;index"`
	SourceMemberID uint   `gorm:"not null;index"`
	TargetMemberID uint   `gorm:"not null;index"`
	Type           string `gorm:"size:20;not null"`
	Order          int    `gorm:"column:sort_order"`
}

func (relationshipV1) TableName() string { return "relationships" }

type eventV1 struct {
	AuditColumns
	FamilyID    uint   `gorm:"not null;index"`
	Name        string `gorm:"size:200;not null"`
	Type        string `gorm:"size:20"`
	Description string `gorm:"type:text"`
	StartDate   *time.Time
	EndDate     *time.Time
	Location    string `gorm:"size:255"`
	Color       string `gorm:"size:10"`
	RepeatRule  string `gorm:"size:10;not null"`
}

func (eventV1) TableName() string { return "events" }

type eventMemberV1 struct {
	AuditColumns
	EventID  uint `gorm:"not null;index"`
	MemberID uint `gorm:"not null;index"`
}

func (eventMemberV1) TableName() string { return "event_members" }

type jobStatusV1 struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"size:20;not null;unique"`
}

func (jobStatusV1) TableName() string { return "job_statuses" }

type jobV1 struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Fails       int
	Name        string `gorm:"size:255;not null;index"`
	Handler     string `gorm:"size:100;not null"`
	Args        string `gorm:"type:text"`
	LastError   string `gorm:"type:text"`
	Claimed     bool   `gorm:"not null;default:false"`
	EnqueuedAt  *time.Time
	RunAt       *time.Time
	JobStatusID uint `gorm:"index"`
}

func (jobV1) TableName() string { return "jobs" }

func init() {
	tables := []interface{}{
		&familyV1{}, &memberV1{}, &relationshipV1{}, &eventV1{}, &eventMemberV1{},
		&jobStatusV1{}, &jobV1{},
	}

	register(Migration{
		ID: "20240301090000_initial_create",
		Up: func(tx *gorm.DB) error {
			if err := createTables(tx, tables...); err != nil {
				return err
			}

			return tx.Create(&[]jobStatusV1{
				{Name: "enqueued"}, {Name: "in-progress"}, {Name: "successful"},
				{Name: "dead"}, {Name: "scheduled"},
			}).Error
		},
		Down: func(tx *gorm.DB) error {
			return dropTables(tx, tables...)
		},
	})
}
