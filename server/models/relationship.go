package models

import (
	"context"

	"github.com/pkg/errors"
)

const (
	FATHER_RELATIONSHIP  = "father"
	MOTHER_RELATIONSHIP  = "mother"
	HUSBAND_RELATIONSHIP = "husband"
	WIFE_RELATIONSHIP    = "wife"
	CHILD_RELATIONSHIP   = "child"
)

// Relationship reads as "source is <type> of target".
type Relationship struct {
	BaseModel
	FamilyID       uint   `json:"family_id" validate:"required" gorm:"not null;index"`
	SourceMemberID uint   `json:"source_member_id" validate:"required" gorm:"not null;index"`
	TargetMemberID uint   `json:"target_member_id" validate:"required" gorm:"not null;index"`
	Type           string `json:"type" validate:"required,oneof=father mother husband wife child" gorm:"size:20;not null"`
	Order          int    `json:"order" gorm:"column:sort_order"`
}

func (Relationship) SearchFields() []string {
	return nil
}

func (Relationship) FilterFields() []string {
	return []string{"family_id", "source_member_id", "target_member_id", "type"}
}

func (Relationship) UpdatableFields() []string {
	return []string{"source_member_id", "target_member_id", "type", "sort_order"}
}

func (relationship Relationship) Validate() error {
	if relationship.SourceMemberID != 0 && relationship.SourceMemberID == relationship.TargetMemberID {
		return &ValidationError{Field: "target_member_id", Message: "must differ from source_member_id"}
	}
	return nil
}

// checkReferences makes sure both ends of the relationship belong to its family.
func (relationship Relationship) checkReferences(ctx context.Context) error {
	if err := requireRow[Family](ctx, "family_id", relationship.FamilyID); err != nil {
		return err
	}

	var count int64
	err := db.WithContext(ctx).Model(&Member{}).
		Where("id IN ? AND family_id = ?",
			[]uint{relationship.SourceMemberID, relationship.TargetMemberID}, relationship.FamilyID).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "checkReferences")
	}

	if count != 2 {
		return &ValidationError{Field: "source_member_id", Message: "and target_member_id must be members of the family"}
	}
	return nil
}
