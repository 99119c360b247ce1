package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	Init("en")

	assert.Equal(t, "member", T("entities.member"))
	assert.Equal(t, "Could not load member list.",
		Tf("store.errors.load", map[string]interface{}{"Entity": T("entities.member")}))
}

func TestTFallsBackToMessageID(t *testing.T) {
	Init("en")

	assert.Equal(t, "does.not.exist", T("does.not.exist"))
}

func TestNewLocalizer(t *testing.T) {
	lz := NewLocalizer("vi")
	assert.Equal(t, "thành viên", lz.T("entities.member"))

	// unknown languages fall back to english
	lz = NewLocalizer("de")
	assert.Equal(t, "record not found", lz.T("api.errors.not_found"))
}

func TestSetLang(t *testing.T) {
	SetLang("vi")
	defer SetLang("en")

	assert.Equal(t, "gia đình", T("entities.family"))
}
