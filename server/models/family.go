package models

import (
	"context"

	"github.com/pkg/errors"
)

const (
	PUBLIC_VISIBILITY  = "public"
	PRIVATE_VISIBILITY = "private"
)

type Family struct {
	BaseModel
	Name             string `json:"name" validate:"required,max=100" gorm:"size:100;not null"`
	Description      string `json:"description" validate:"max=2000" gorm:"type:text"`
	Address          string `json:"address" validate:"max=255" gorm:"size:255"`
	AvatarURL        string `json:"avatar_url" validate:"omitempty,url,max=500" gorm:"size:500"`
	Visibility       string `json:"visibility" validate:"omitempty,oneof=public private" gorm:"size:20;not null"`
	ReminderPhone    string `json:"reminder_phone" validate:"omitempty,e164" gorm:"size:20"`
	RemindersEnabled bool   `json:"reminders_enabled" gorm:"not null"`
}

// FamilyTree is a family with every member and relationship in it.
type FamilyTree struct {
	Family        Family         `json:"family"`
	Members       []Member       `json:"members"`
	Relationships []Relationship `json:"relationships"`
}

func (Family) SearchFields() []string {
	return []string{"name", "address"}
}

func (Family) FilterFields() []string {
	return []string{"visibility", "reminders_enabled"}
}

func (Family) UpdatableFields() []string {
	return []string{"name", "description", "address", "avatar_url", "visibility", "reminder_phone", "reminders_enabled"}
}

func (family *Family) SetDefaults() {
	if family.Visibility == "" {
		family.Visibility = PRIVATE_VISIBILITY
	}
}

func (family Family) Validate() error {
	if family.RemindersEnabled && family.ReminderPhone == "" {
		return &ValidationError{Field: "reminder_phone", Message: "is required when reminders are enabled"}
	}
	return nil
}

func FindFamilyTree(ctx context.Context, familyID interface{}) (*FamilyTree, error) {
	family, err := FindByID[Family](ctx, familyID)
	if err != nil {
		return nil, err
	}

	tree := FamilyTree{Family: *family, Members: []Member{}, Relationships: []Relationship{}}

	err = db.WithContext(ctx).Where("family_id = ?", family.ID).Order("id").Find(&tree.Members).Error
	if err != nil {
		return nil, errors.Wrap(err, "FindFamilyTree: members")
	}

	err = db.WithContext(ctx).Where("family_id = ?", family.ID).Order("id").Find(&tree.Relationships).Error
	if err != nil {
		return nil, errors.Wrap(err, "FindFamilyTree: relationships")
	}

	return &tree, nil
}

// FamiliesWithReminders returns families that opted into SMS event reminders.
func FamiliesWithReminders(ctx context.Context) ([]Family, error) {
	families := []Family{}
	err := db.WithContext(ctx).
		Where("reminders_enabled = ? AND reminder_phone <> ''", true).
		Order("id").Find(&families).Error
	if err != nil {
		return nil, errors.Wrap(err, "FamiliesWithReminders")
	}

	return families, nil
}
