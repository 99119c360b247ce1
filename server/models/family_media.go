package models

import (
	"context"
	"strings"
)

const (
	IMAGE_MEDIA    = "image"
	VIDEO_MEDIA    = "video"
	AUDIO_MEDIA    = "audio"
	DOCUMENT_MEDIA = "document"
	OTHER_MEDIA    = "other"
)

type FamilyMedia struct {
	BaseModel
	FamilyID    uint   `json:"family_id" validate:"required" gorm:"not null;index"`
	FileName    string `json:"file_name" validate:"required,max=255" gorm:"size:255;not null"`
	MediaType   string `json:"media_type" validate:"omitempty,oneof=image video audio document other" gorm:"size:20;not null"`
	MimeType    string `json:"mime_type" validate:"max=100" gorm:"size:100"`
	FileSize    int64  `json:"file_size"`
	StorageKey  string `json:"storage_key" gorm:"size:500;not null"`
	Description string `json:"description" gorm:"type:text"`
}

func (FamilyMedia) TableName() string {
	return "family_media"
}

func (FamilyMedia) SearchFields() []string {
	return []string{"file_name", "description"}
}

func (FamilyMedia) FilterFields() []string {
	return []string{"family_id", "media_type"}
}

// UpdatableFields leaves out the blob columns, they only change on upload.
func (FamilyMedia) UpdatableFields() []string {
	return []string{"file_name", "media_type", "description"}
}

func (media *FamilyMedia) SetDefaults() {
	if media.MediaType == "" {
		media.MediaType = OTHER_MEDIA
	}
}

func (media FamilyMedia) checkReferences(ctx context.Context) error {
	return requireRow[Family](ctx, "family_id", media.FamilyID)
}

// MediaTypeFromMime maps a mime type such as "image/png" to a media type.
func MediaTypeFromMime(mimeType string) string {
	major, _, _ := strings.Cut(mimeType, "/")
	switch major {
	case IMAGE_MEDIA, VIDEO_MEDIA, AUDIO_MEDIA:
		return major
	case "application", "text":
		return DOCUMENT_MEDIA
	}
	return OTHER_MEDIA
}
