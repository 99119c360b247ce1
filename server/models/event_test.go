package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventOccursOn(t *testing.T) {
	start := time.Date(1990, 7, 14, 10, 0, 0, 0, time.UTC)
	today := time.Date(2024, 7, 14, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		description string
		event       Event
		expected    bool
	}{
		{"yearly event on its anniversary", Event{StartDate: &start, RepeatRule: YEARLY_REPEAT}, true},
		{"one-off event in the past", Event{StartDate: &start, RepeatRule: NO_REPEAT}, false},
		{"one-off event today", Event{StartDate: &today, RepeatRule: NO_REPEAT}, true},
		{"event without a date", Event{RepeatRule: YEARLY_REPEAT}, false},
	}

	for _, tcase := range cases {
		t.Run(tcase.description, func(t *testing.T) {
			assert.Equal(t, tcase.expected, tcase.event.OccursOn(today))
		})
	}
}

func TestLeapDayEventsOccurOnLastDayOfFebruary(t *testing.T) {
	leapDay := time.Date(1996, 2, 29, 0, 0, 0, 0, time.UTC)
	birthday := Event{StartDate: &leapDay, RepeatRule: YEARLY_REPEAT}

	cases := []struct {
		description string
		day         time.Time
		expected    bool
	}{
		{"28 February of a common year", time.Date(2023, 2, 28, 9, 0, 0, 0, time.UTC), true},
		{"1 March of a common year", time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC), false},
		{"29 February of a leap year", time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC), true},
		{"28 February of a leap year", time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC), false},
		{"28 February of 2100", time.Date(2100, 2, 28, 9, 0, 0, 0, time.UTC), true},
		{"28 February of 2000", time.Date(2000, 2, 28, 9, 0, 0, 0, time.UTC), false},
	}

	for _, tcase := range cases {
		t.Run(tcase.description, func(t *testing.T) {
			assert.Equal(t, tcase.expected, birthday.OccursOn(tcase.day))
		})
	}

	oneOff := Event{StartDate: &leapDay, RepeatRule: NO_REPEAT}
	assert.False(t, oneOff.OccursOn(time.Date(1996, 2, 28, 9, 0, 0, 0, time.UTC)))
}

func TestEventsForFamilyOn(t *testing.T) {
	InitializeTestDb()

	family := createTestFamily(t, "Stark")
	wedding := time.Date(1985, 5, 2, 0, 0, 0, 0, time.UTC)
	other := time.Date(1985, 6, 2, 0, 0, 0, 0, time.UTC)

	require.Nil(t, Create(context.Background(), &Event{FamilyID: family.ID, Name: "Wedding", StartDate: &wedding, RepeatRule: YEARLY_REPEAT}))
	require.Nil(t, Create(context.Background(), &Event{FamilyID: family.ID, Name: "Tourney", StartDate: &other, RepeatRule: YEARLY_REPEAT}))

	events, err := EventsForFamilyOn(context.Background(), family.ID, time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC))
	require.Nil(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Wedding", events[0].Name)
}
