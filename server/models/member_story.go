package models

import "context"

type MemberStory struct {
	BaseModel
	MemberID      uint   `json:"member_id" validate:"required" gorm:"not null;index"`
	Title         string `json:"title" validate:"required,max=200" gorm:"size:200;not null"`
	Content       string `json:"content" gorm:"type:text"`
	StoryStyle    string `json:"story_style" validate:"max=50" gorm:"size:50"`
	Perspective   string `json:"perspective" validate:"max=50" gorm:"size:50"`
	IsAIGenerated bool   `json:"is_ai_generated" gorm:"column:is_ai_generated;not null"`
}

func (MemberStory) TableName() string {
	return "member_stories"
}

func (MemberStory) SearchFields() []string {
	return []string{"title", "content"}
}

func (MemberStory) FilterFields() []string {
	return []string{"member_id", "story_style", "is_ai_generated"}
}

func (MemberStory) UpdatableFields() []string {
	return []string{"title", "content", "story_style", "perspective", "is_ai_generated"}
}

func (story MemberStory) checkReferences(ctx context.Context) error {
	return requireRow[Member](ctx, "member_id", story.MemberID)
}
