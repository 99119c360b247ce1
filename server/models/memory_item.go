package models

import (
	"context"
	"time"
)

type MemoryItem struct {
	BaseModel
	FamilyID      uint       `json:"family_id" validate:"required" gorm:"not null;index"`
	MemberID      *uint      `json:"member_id" gorm:"index"`
	FamilyMediaID *uint      `json:"family_media_id"`
	Title         string     `json:"title" validate:"required,max=200" gorm:"size:200;not null"`
	Description   string     `json:"description" gorm:"type:text"`
	HappenedAt    *time.Time `json:"happened_at"`
	Location      string     `json:"location" validate:"max=255" gorm:"size:255"`
	EmotionalTag  string     `json:"emotional_tag" validate:"max=50" gorm:"size:50"`
}

func (MemoryItem) SearchFields() []string {
	return []string{"title", "description", "location"}
}

func (MemoryItem) FilterFields() []string {
	return []string{"family_id", "member_id", "emotional_tag"}
}

func (MemoryItem) UpdatableFields() []string {
	return []string{"member_id", "family_media_id", "title", "description", "happened_at", "location", "emotional_tag"}
}

func (item MemoryItem) checkReferences(ctx context.Context) error {
	if err := requireRow[Family](ctx, "family_id", item.FamilyID); err != nil {
		return err
	}

	if item.MemberID != nil {
		if err := requireFamilyRow[Member](ctx, "member_id", *item.MemberID, item.FamilyID); err != nil {
			return err
		}
	}

	if item.FamilyMediaID != nil {
		return requireFamilyRow[FamilyMedia](ctx, "family_media_id", *item.FamilyMediaID, item.FamilyID)
	}
	return nil
}
