package models

import "context"

type MemberFace struct {
	BaseModel
	MemberID      uint    `json:"member_id" validate:"required" gorm:"not null;index"`
	FamilyMediaID uint    `json:"family_media_id" validate:"required" gorm:"not null;index"`
	BoxX          int     `json:"box_x" validate:"min=0"`
	BoxY          int     `json:"box_y" validate:"min=0"`
	BoxWidth      int     `json:"box_width" validate:"min=0"`
	BoxHeight     int     `json:"box_height" validate:"min=0"`
	Confidence    float64 `json:"confidence"`
	Emotion       string  `json:"emotion" validate:"max=50" gorm:"size:50"`
	IsConfirmed   bool    `json:"is_confirmed" gorm:"not null"`
}

func (MemberFace) SearchFields() []string {
	return []string{"emotion"}
}

func (MemberFace) FilterFields() []string {
	return []string{"member_id", "family_media_id", "is_confirmed"}
}

func (MemberFace) UpdatableFields() []string {
	return []string{"member_id", "box_x", "box_y", "box_width", "box_height", "confidence", "emotion", "is_confirmed"}
}

func (face MemberFace) Validate() error {
	if face.Confidence < 0 || face.Confidence > 1 {
		return &ValidationError{Field: "confidence", Message: "must be between 0 and 1"}
	}
	return nil
}

func (face MemberFace) checkReferences(ctx context.Context) error {
	if err := requireRow[Member](ctx, "member_id", face.MemberID); err != nil {
		return err
	}
	return requireRow[FamilyMedia](ctx, "family_media_id", face.FamilyMediaID)
}
