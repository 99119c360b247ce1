package models

import (
	"context"
	"time"
)

const (
	MALE_GENDER   = "male"
	FEMALE_GENDER = "female"
	OTHER_GENDER  = "other"
)

type Member struct {
	BaseModel
	FamilyID     uint       `json:"family_id" validate:"required" gorm:"not null;index"`
	FirstName    string     `json:"first_name" validate:"required,max=100" gorm:"size:100;not null"`
	LastName     string     `json:"last_name" validate:"required,max=100" gorm:"size:100;not null"`
	Nickname     string     `json:"nickname" validate:"max=100" gorm:"size:100"`
	Gender       string     `json:"gender" validate:"omitempty,oneof=male female other" gorm:"size:10"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	DateOfDeath  *time.Time `json:"date_of_death"`
	PlaceOfBirth string     `json:"place_of_birth" validate:"max=255" gorm:"size:255"`
	PlaceOfDeath string     `json:"place_of_death" validate:"max=255" gorm:"size:255"`
	Occupation   string     `json:"occupation" validate:"max=100" gorm:"size:100"`
	Biography    string     `json:"biography" gorm:"type:text"`
	AvatarURL    string     `json:"avatar_url" validate:"omitempty,url,max=500" gorm:"size:500"`
	IsRoot       bool       `json:"is_root" gorm:"not null"`
}

func (Member) SearchFields() []string {
	return []string{"first_name", "last_name", "nickname"}
}

func (Member) FilterFields() []string {
	return []string{"family_id", "gender", "is_root"}
}

func (Member) UpdatableFields() []string {
	return []string{"first_name", "last_name", "nickname", "gender", "date_of_birth", "date_of_death",
		"place_of_birth", "place_of_death", "occupation", "biography", "avatar_url", "is_root"}
}

func (member Member) FullName() string {
	return member.FirstName + " " + member.LastName
}

func (member Member) Validate() error {
	if member.DateOfBirth != nil && member.DateOfDeath != nil && member.DateOfDeath.Before(*member.DateOfBirth) {
		return &ValidationError{Field: "date_of_death", Message: "cannot be before date_of_birth"}
	}
	return nil
}

func (member Member) checkReferences(ctx context.Context) error {
	return requireRow[Family](ctx, "family_id", member.FamilyID)
}
