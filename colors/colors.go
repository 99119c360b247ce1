// Package colors is the terminal palette for famtree's logs and CLI output.
// fatih/color drops the escape codes when NO_COLOR is set or output is not a terminal.
package colors

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
)

// HTTPStatus colours a response code for the request log: red for errors,
// yellow for redirects, green otherwise.
func HTTPStatus(code int) string {
	switch {
	case code >= 400:
		return Red(code)
	case code >= 300:
		return Yellow(code)
	}
	return Green(code)
}

// Tag renders the "[label] " prefix background loops put in front of their log lines.
func Tag(paint func(a ...interface{}) string, format string, args ...interface{}) string {
	return paint(fmt.Sprintf("["+format+"] ", args...))
}

// MigrationState labels a migration as applied ("up  ") or pending ("down").
func MigrationState(applied bool) string {
	if applied {
		return Green("up  ")
	}
	return Red("down")
}
