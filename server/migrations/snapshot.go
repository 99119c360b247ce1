package migrations

import "time"

// AuditColumns is the frozen shape of the audit columns every genealogy table carries.
type AuditColumns struct {
	ID             uint      `gorm:"primarykey"`
	Created        time.Time `gorm:"column:created"`
	CreatedBy      string    `gorm:"size:100"`
	LastModified   time.Time `gorm:"column:last_modified"`
	LastModifiedBy string    `gorm:"size:100"`
	IsDeleted      uint      `gorm:"column:is_deleted;not null;default:0;index"`
}
