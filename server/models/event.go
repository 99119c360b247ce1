package models

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	NO_REPEAT     = "none"
	YEARLY_REPEAT = "yearly"
)

type Event struct {
	BaseModel
	FamilyID    uint       `json:"family_id" validate:"required" gorm:"not null;index"`
	Name        string     `json:"name" validate:"required,max=200" gorm:"size:200;not null"`
	Type        string     `json:"type" validate:"omitempty,oneof=birth marriage death anniversary other" gorm:"size:20"`
	Description string     `json:"description" gorm:"type:text"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Location    string     `json:"location" validate:"max=255" gorm:"size:255"`
	Color       string     `json:"color" validate:"omitempty,hexcolor" gorm:"size:10"`
	RepeatRule  string     `json:"repeat_rule" validate:"omitempty,oneof=none yearly" gorm:"size:10;not null"`
}

// EventMember links a member to an event they took part in.
type EventMember struct {
	BaseModel
	EventID  uint `json:"event_id" validate:"required" gorm:"not null;index"`
	MemberID uint `json:"member_id" validate:"required" gorm:"not null;index"`
}

func (Event) SearchFields() []string {
	return []string{"name", "location"}
}

func (Event) FilterFields() []string {
	return []string{"family_id", "type", "repeat_rule"}
}

func (Event) UpdatableFields() []string {
	return []string{"name", "type", "description", "start_date", "end_date", "location", "color", "repeat_rule"}
}

func (event *Event) SetDefaults() {
	if event.RepeatRule == "" {
		event.RepeatRule = NO_REPEAT
	}
}

func (event Event) Validate() error {
	if event.StartDate != nil && event.EndDate != nil && event.EndDate.Before(*event.StartDate) {
		return &ValidationError{Field: "end_date", Message: "cannot be before start_date"}
	}
	return nil
}

func (event Event) checkReferences(ctx context.Context) error {
	return requireRow[Family](ctx, "family_id", event.FamilyID)
}

// OccursOn reports whether the event falls on day's calendar date, in day's
// location. Start dates are calendar dates kept in UTC. Yearly events match
// on month and day only; a 29 February event falls on 28 February in
// non-leap years.
func (event Event) OccursOn(day time.Time) bool {
	if event.StartDate == nil {
		return false
	}

	start := event.StartDate.UTC()
	if event.RepeatRule == YEARLY_REPEAT {
		if start.Year() > day.Year() {
			return false
		}
		if start.Month() == time.February && start.Day() == 29 && !isLeapYear(day.Year()) {
			return day.Month() == time.February && day.Day() == 28
		}
		return start.Month() == day.Month() && start.Day() == day.Day()
	}

	return start.Year() == day.Year() && start.Month() == day.Month() && start.Day() == day.Day()
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// EventsForFamilyOn returns the family's events that occur on day.
func EventsForFamilyOn(ctx context.Context, familyID uint, day time.Time) ([]Event, error) {
	events := []Event{}
	err := db.WithContext(ctx).
		Where("family_id = ? AND start_date IS NOT NULL", familyID).
		Order("start_date").Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "EventsForFamilyOn")
	}

	matching := []Event{}
	for _, event := range events {
		if event.OccursOn(day) {
			matching = append(matching, event)
		}
	}

	return matching, nil
}

func (EventMember) SearchFields() []string {
	return nil
}

func (EventMember) FilterFields() []string {
	return []string{"event_id", "member_id"}
}

func (EventMember) UpdatableFields() []string {
	return []string{"event_id", "member_id"}
}

func (eventMember EventMember) checkReferences(ctx context.Context) error {
	if err := requireRow[Event](ctx, "event_id", eventMember.EventID); err != nil {
		return err
	}
	return requireRow[Member](ctx, "member_id", eventMember.MemberID)
}
