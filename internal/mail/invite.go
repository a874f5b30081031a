package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/thinx/internal/errors"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

const (
	icsDateTime = "20060102T150405"
	icsDate     = "20060102"
	icsUTC      = "20060102T150405Z"
)

// Invite describes one calendar event. A zero End means one hour after
// Start, or the following day for all-day events.
type Invite struct {
	To          string
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	AllDay      bool
}

func (inv Invite) Validate() error {
	if strings.TrimSpace(inv.To) == "" {
		return errors.InvalidInput("invite recipient is empty")
	}
	if strings.TrimSpace(inv.Title) == "" {
		return errors.InvalidInput("invite title is empty")
	}
	if inv.Start.IsZero() {
		return errors.InvalidInput("invite start is empty")
	}
	if !inv.End.IsZero() && inv.End.Before(inv.Start) {
		return errors.InvalidInput("invite ends before it starts")
	}
	return nil
}

func (inv Invite) end() time.Time {
	if !inv.End.IsZero() {
		return inv.End
	}
	if inv.AllDay {
		return inv.Start.AddDate(0, 0, 1)
	}
	return inv.Start.Add(time.Hour)
}

// Calendar fields shared by every invite the sender produces.
type Calendar struct {
	Organizer     string
	OrganizerName string
	UID           string
	Stamp         time.Time
}

// BuildICS renders inv as an iCalendar REQUEST. Lines end in CRLF.
func BuildICS(inv Invite, cal Calendar) string {
	var start, end string
	if inv.AllDay {
		start = "DTSTART;VALUE=DATE:" + inv.Start.Format(icsDate)
		end = "DTEND;VALUE=DATE:" + inv.end().Format(icsDate)
	} else {
		start = "DTSTART:" + inv.Start.Format(icsDateTime)
		end = "DTEND:" + inv.end().Format(icsDateTime)
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//ThinxAI//Calendar//EN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:" + cal.UID,
		"DTSTAMP:" + cal.Stamp.UTC().Format(icsUTC),
		start,
		end,
		"SUMMARY:" + escapeText(inv.Title),
		"DESCRIPTION:" + escapeText(inv.Description),
		"LOCATION:" + escapeText(inv.Location),
		fmt.Sprintf("ORGANIZER;CN=%s:mailto:%s", cal.OrganizerName, cal.Organizer),
		"ATTENDEE;PARTSTAT=NEEDS-ACTION;RSVP=TRUE:mailto:" + inv.To,
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func inviteSummary(inv Invite) string {
	where := inv.Location
	if strings.TrimSpace(where) == "" {
		where = "TBD"
	}
	when := inv.Start.Format("Monday, January 02, 2006 at 03:04 PM")
	if inv.AllDay {
		when = inv.Start.Format("Monday, January 02, 2006")
	}
	return fmt.Sprintf("You've been invited to: %s\n\nWhen: %s\nWhere: %s\n\n%s\n\n---\nOpen the invite to add it to your calendar.\nSent from ThinxAI\n",
		inv.Title, when, where, inv.Description)
}

func newEventUID() string {
	return uuid.NewString()
}

// SendInvite mails inv with a text/calendar alternative part.
func (s *Sender) SendInvite(ctx context.Context, inv Invite) Result {
	if !s.Configured() {
		return Result{Success: false, Message: msgNotConfigured}
	}
	if err := inv.Validate(); err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to send calendar invite: %v", err)}
	}

	msg, err := s.newMessage(inv.To, "Calendar Invite: "+inv.Title)
	if err != nil {
		return Result{Success: false, Message: fmt.Sprintf("Failed to send calendar invite: %v", err)}
	}

	ics := BuildICS(inv, Calendar{
		Organizer:     s.cfg.Address,
		OrganizerName: s.cfg.OrganizerName,
		UID:           s.newUID() + "@" + s.cfg.UIDDomain,
		Stamp:         s.now(),
	})
	msg.SetBodyString(gomail.TypeTextPlain, inviteSummary(inv))
	msg.AddAlternativeString(gomail.ContentType("text/calendar; method=REQUEST"), ics)
	msg.SetGenHeader("Content-Class", "urn:content-classes:calendarmessage")

	if err := s.transport.Send(ctx, msg); err != nil {
		return s.failure("Failed to send calendar invite", err)
	}
	return Result{Success: true, Message: fmt.Sprintf("Calendar invite sent to %s: %s", inv.To, inv.Title)}
}
