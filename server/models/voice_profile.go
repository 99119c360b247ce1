package models

import "context"

const (
	PENDING_VOICE = "pending"
	READY_VOICE   = "ready"
	FAILED_VOICE  = "failed"
)

type VoiceProfile struct {
	BaseModel
	MemberID        uint    `json:"member_id" validate:"required" gorm:"not null;index"`
	Label           string  `json:"label" validate:"required,max=100" gorm:"size:100;not null"`
	AudioURL        string  `json:"audio_url" validate:"omitempty,url,max=500" gorm:"size:500"`
	DurationSeconds float64 `json:"duration_seconds" validate:"min=0"`
	Language        string  `json:"language" validate:"max=10" gorm:"size:10"`
	Consent         bool    `json:"consent" gorm:"not null"`
	Status          string  `json:"status" validate:"omitempty,oneof=pending ready failed" gorm:"size:20;not null"`
}

func (VoiceProfile) SearchFields() []string {
	return []string{"label"}
}

func (VoiceProfile) FilterFields() []string {
	return []string{"member_id", "status", "language"}
}

func (VoiceProfile) UpdatableFields() []string {
	return []string{"label", "audio_url", "duration_seconds", "language", "consent", "status"}
}

func (profile *VoiceProfile) SetDefaults() {
	if profile.Status == "" {
		profile.Status = PENDING_VOICE
	}
}

// Validate refuses to mark a profile ready without the member's consent.
func (profile VoiceProfile) Validate() error {
	if profile.Status == READY_VOICE && !profile.Consent {
		return &ValidationError{Field: "consent", Message: "is required before a voice profile can be ready"}
	}
	return nil
}

func (profile VoiceProfile) checkReferences(ctx context.Context) error {
	return requireRow[Member](ctx, "member_id", profile.MemberID)
}
