package colors

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	noColor := color.NoColor
	defer func() { color.NoColor = noColor }()

	color.NoColor = true
	assert.Equal(t, "404", HTTPStatus(404))
	assert.Equal(t, "[worker ab12] ", Tag(Red, "worker %v", "ab12"))
	assert.Equal(t, "down", MigrationState(false))

	color.NoColor = false
	tests := []struct {
		code int
		want string
	}{
		{200, Green(200)},
		{204, Green(204)},
		{302, Yellow(302)},
		{404, Red(404)},
		{500, Red(500)},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, HTTPStatus(tc.code), tc.code)
	}
	assert.Contains(t, HTTPStatus(500), "\x1b[31m")
}
