package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/thinx/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

type fakeTransport struct {
	sent []*gomail.Msg
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg *gomail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func render(t *testing.T, msg *gomail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func testMailConfig() config.MailConfig {
	return config.MailConfig{
		Host:          "smtp.example.com",
		Port:          465,
		Address:       "bot@example.com",
		AppPassword:   "app-pass",
		OrganizerName: "ThinxAI",
		UIDDomain:     "thinxai.net",
		Timeout:       "5s",
	}
}

func TestSendWithoutCredentials(t *testing.T) {
	cfg := testMailConfig()
	cfg.AppPassword = ""
	transport := &fakeTransport{}
	s := NewSender(cfg).WithTransport(transport)

	res := s.Send(context.Background(), "a@example.com", "hi", "body", false)
	assert.False(t, res.Success)
	assert.Equal(t, "Email credentials not configured. Check .env file.", res.Message)

	res = s.SendInvite(context.Background(), Invite{To: "a@example.com", Title: "x", Start: time.Now()})
	assert.False(t, res.Success)
	assert.Equal(t, msgNotConfigured, res.Message)
	assert.Empty(t, transport.sent)
}

func TestSendPlainAndHTML(t *testing.T) {
	transport := &fakeTransport{}
	s := NewSender(testMailConfig()).WithTransport(transport)

	res := s.Send(context.Background(), "a@example.com", "Status", "<b>ok</b>", true)
	require.True(t, res.Success)
	assert.Equal(t, "Email sent to a@example.com", res.Message)

	require.Len(t, transport.sent, 1)
	raw := render(t, transport.sent[0])
	assert.Contains(t, raw, "Subject: Status")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "<b>ok</b>")
}

func TestSendRejectsBadRecipient(t *testing.T) {
	s := NewSender(testMailConfig()).WithTransport(&fakeTransport{})
	res := s.Send(context.Background(), "not an address", "x", "y", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Failed to send email")
}

func TestSendAuthFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("535 5.7.8 Username and Password not accepted")}
	s := NewSender(testMailConfig()).WithTransport(transport)

	res := s.Send(context.Background(), "a@example.com", "x", "y", false)
	assert.False(t, res.Success)
	assert.Equal(t, "Authentication failed. Check Gmail app password.", res.Message)
}

func TestSendTransportFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("dial tcp: i/o timeout")}
	res := NewSender(testMailConfig()).WithTransport(transport).Send(context.Background(), "a@example.com", "x", "y", false)
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to send email: dial tcp: i/o timeout", res.Message)
}

func TestBuildICS(t *testing.T) {
	start := time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)
	ics := BuildICS(Invite{
		To:          "guest@example.com",
		Title:       "Design review; v2",
		Start:       start,
		Description: "Bring notes,\nplease",
		Location:    "Room 4",
	}, Calendar{
		Organizer:     "bot@example.com",
		OrganizerName: "ThinxAI",
		UID:           "abc@thinxai.net",
		Stamp:         time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	})

	lines := strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n")
	assert.Equal(t, "BEGIN:VCALENDAR", lines[0])
	assert.Equal(t, "END:VCALENDAR", lines[len(lines)-1])
	assert.Contains(t, lines, "METHOD:REQUEST")
	assert.Contains(t, lines, "PRODID:-//ThinxAI//Calendar//EN")
	assert.Contains(t, lines, "UID:abc@thinxai.net")
	assert.Contains(t, lines, "DTSTAMP:20240301T080000Z")
	assert.Contains(t, lines, "DTSTART:20240305T143000")
	assert.Contains(t, lines, "DTEND:20240305T153000")
	assert.Contains(t, lines, `SUMMARY:Design review\; v2`)
	assert.Contains(t, lines, `DESCRIPTION:Bring notes\,\nplease`)
	assert.Contains(t, lines, "LOCATION:Room 4")
	assert.Contains(t, lines, "ORGANIZER;CN=ThinxAI:mailto:bot@example.com")
	assert.Contains(t, lines, "ATTENDEE;PARTSTAT=NEEDS-ACTION;RSVP=TRUE:mailto:guest@example.com")
	assert.Contains(t, lines, "STATUS:CONFIRMED")
	assert.Contains(t, lines, "SEQUENCE:0")
}

func TestBuildICSAllDay(t *testing.T) {
	ics := BuildICS(Invite{
		To:     "guest@example.com",
		Title:  "Holiday",
		Start:  time.Date(2024, 12, 24, 0, 0, 0, 0, time.Local),
		AllDay: true,
	}, Calendar{UID: "u", Stamp: time.Now()})

	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20241224\r\n")
	assert.Contains(t, ics, "DTEND;VALUE=DATE:20241225\r\n")
}

func TestSendInvite(t *testing.T) {
	transport := &fakeTransport{}
	s := NewSender(testMailConfig()).WithTransport(transport)
	s.newUID = func() string { return "fixed-uid" }

	res := s.SendInvite(context.Background(), Invite{
		To:    "guest@example.com",
		Title: "Sync",
		Start: time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local),
	})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Calendar invite sent to guest@example.com: Sync", res.Message)

	raw := render(t, transport.sent[0])
	assert.Contains(t, raw, "Subject: Calendar Invite: Sync")
	assert.Contains(t, raw, "text/calendar")
	assert.Contains(t, raw, "Where: TBD")
}

func TestInviteValidate(t *testing.T) {
	start := time.Now()
	assert.Error(t, Invite{Title: "x", Start: start}.Validate())
	assert.Error(t, Invite{To: "a@b.c", Start: start}.Validate())
	assert.Error(t, Invite{To: "a@b.c", Title: "x"}.Validate())
	assert.Error(t, Invite{To: "a@b.c", Title: "x", Start: start, End: start.Add(-time.Minute)}.Validate())
	assert.NoError(t, Invite{To: "a@b.c", Title: "x", Start: start}.Validate())
}

func TestProberCollect(t *testing.T) {
	outputs := map[string]string{
		"hostname": "thinx-box\n",
		"uptime":   "up 3 days, 2 hours\n",
		"df":       "Filesystem Size Used Avail Use% Mounted\n/dev/sda1 100G 42G 58G 42% /\n",
		"free":     "       total used free\nMem:   16Gi  5Gi  11Gi\nSwap:  0B 0B 0B\n",
		"cat":      "0.15 0.10 0.05 1/234 5678\n",
	}
	p := NewProber(config.HealthConfig{
		Probes: map[string]string{
			"hostname": "hostname",
			"uptime":   "uptime -p",
			"disk":     "df -h /",
			"memory":   "free -h",
			"load":     "cat /proc/loadavg",
			"broken":   "missing-binary",
		},
	})
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }
	p.run = func(_ context.Context, argv []string) (string, error) {
		if out, ok := outputs[argv[0]]; ok {
			return out, nil
		}
		return "", errors.New("not found")
	}

	report := p.Collect(context.Background())
	assert.Equal(t, "thinx-box", report.Host)
	assert.Equal(t, "up 3 days, 2 hours", report.Uptime)
	assert.Equal(t, "42% used", report.Disk)
	assert.Equal(t, "5Gi/16Gi", report.Memory)
	assert.Equal(t, "0.15 0.10 0.05", report.Load)
	assert.Equal(t, "unavailable", report.Extra["broken"])

	assert.Equal(t, "[ThinxAI] Health Status - thinx-box", report.Subject())
	body := report.Body()
	assert.Contains(t, body, "Generated: 2024-01-02 03:04:05")
	assert.Contains(t, body, "Disk Usage: 42% used")
	assert.Contains(t, body, "broken: unavailable")
}

func TestProberMissingProbesUnavailable(t *testing.T) {
	p := NewProber(config.HealthConfig{Probes: map[string]string{"hostname": "hostname"}})
	p.run = func(context.Context, []string) (string, error) { return "box", nil }

	report := p.Collect(context.Background())
	assert.Equal(t, "box", report.Host)
	assert.Equal(t, "unavailable", report.Load)
}
