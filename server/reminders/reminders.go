// Package reminders sends one SMS per family listing the family events that
// fall on the current day. A daily cron enqueues the send_event_reminders job.
package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/i18n"
	"github.com/Daskott/famtree/server/logger"
	"github.com/Daskott/famtree/server/models"
	"github.com/Daskott/famtree/server/work"
)

const (
	SEND_EVENT_REMINDERS_HANDLER = "send_event_reminders"
	DEFAULT_SCHEDULE             = "0 8 * * *"
	DATE_LAYOUT                  = "2006-01-02"
)

var logg = logger.NewLogger()

type Sender interface {
	SendMessage(to, msg string) error
}

type EventReminder struct {
	sender    Sender
	localizer *i18n.Localizer
	location  *time.Location
	now       func() time.Time
}

func NewEventReminder(sender Sender, lang string, location *time.Location) *EventReminder {
	if location == nil {
		location = time.UTC
	}

	return &EventReminder{
		sender:    sender,
		localizer: i18n.NewLocalizer(lang),
		location:  location,
		now:       time.Now,
	}
}

// Register binds the reminder job handler and enqueues it on 'schedule'.
func (er *EventReminder) Register(adapter *work.WorkerPoolAdapter, schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		schedule = DEFAULT_SCHEDULE
	}

	err := adapter.Register(SEND_EVENT_REMINDERS_HANDLER, er.SendEventReminders)
	if err != nil {
		return err
	}

	return adapter.PeriodicallyPerform(schedule, work.JobParams{
		Name:    SEND_EVENT_REMINDERS_HANDLER,
		Handler: SEND_EVENT_REMINDERS_HANDLER,
		Args:    map[string]interface{}{},
	})
}

// SendEventReminders is the job handler. args["date"] (YYYY-MM-DD) overrides
// today's date. Failed sends are logged; the job only fails when nothing
// could be delivered, so a retry never texts a family twice.
func (er *EventReminder) SendEventReminders(args map[string]interface{}) error {
	day, err := er.reminderDay(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	families, err := models.FamiliesWithReminders(ctx)
	if err != nil {
		return err
	}

	sent, failed := 0, 0
	for _, family := range families {
		events, err := models.EventsForFamilyOn(ctx, family.ID, day)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			continue
		}

		err = er.sender.SendMessage(family.ReminderPhone, er.Message(family, events, day))
		if err != nil {
			logg.Errorf(colors.Tag(colors.Red, "reminders")+"family id=%v: %v", family.ID, err)
			failed++
			continue
		}
		sent++
	}

	logg.Infof(colors.Tag(colors.Blue, "reminders")+"%v reminder(s) sent, %v failed for %v", sent, failed, day.Format(DATE_LAYOUT))

	if failed > 0 && sent == 0 {
		return fmt.Errorf("all %v event reminder(s) failed", failed)
	}
	return nil
}

// Message renders the SMS body for a family's events on day.
func (er *EventReminder) Message(family models.Family, events []models.Event, day time.Time) string {
	lines := []string{er.localizer.Tf("reminders.sms.header", map[string]interface{}{"Family": family.Name})}

	for _, event := range events {
		years := 0
		if event.RepeatRule == models.YEARLY_REPEAT && event.StartDate != nil {
			years = day.Year() - event.StartDate.UTC().Year()
		}

		if years > 0 {
			lines = append(lines, er.localizer.Tf("reminders.sms.line",
				map[string]interface{}{"Name": event.Name, "Years": years}))
			continue
		}

		lines = append(lines, er.localizer.Tf("reminders.sms.line_first", map[string]interface{}{"Name": event.Name}))
	}

	return strings.Join(lines, "\n")
}

func (er *EventReminder) reminderDay(args map[string]interface{}) (time.Time, error) {
	date, _ := args["date"].(string)
	if date == "" {
		return er.now().In(er.location), nil
	}

	day, err := time.ParseInLocation(DATE_LAYOUT, date, er.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reminder date %q: %v", date, err)
	}
	return day, nil
}
