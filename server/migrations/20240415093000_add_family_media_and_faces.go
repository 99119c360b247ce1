package migrations

import "gorm.io/gorm"

type familyMediaV2 struct {
	AuditColumns
	FamilyID    uint   `gorm:"not null;index"`
	FileName    string `gorm:"size:255;not null"`
	MediaType   string `gorm:"size:20;not null"`
	MimeType    string `gorm:"size:100"`
	FileSize    int64
	StorageKey  string `gorm:"size:500;not null"`
	Description string `gorm:"type:text"`
}

func (familyMediaV2) TableName() string { return "family_media" }

type memberFaceV2 struct {
	AuditColumns
	MemberID      uint `gorm:"not null;index"`
	FamilyMediaID uint `gorm:"not null;index"`
	BoxX          int
	BoxY          int
	BoxWidth      int
	BoxHeight     int
	Confidence    float64
	Emotion       string `gorm:"size:50"`
	IsConfirmed   bool   `gorm:"not null"`
}

func (memberFaceV2) TableName() string { return "member_faces" }

func init() {
	register(Migration{
		ID: "20240415093000_add_family_media_and_faces",
		Up: func(tx *gorm.DB) error {
			return createTables(tx, &familyMediaV2{}, &memberFaceV2{})
		},
		Down: func(tx *gorm.DB) error {
			return dropTables(tx, &familyMediaV2{}, &memberFaceV2{})
		},
	})
}
