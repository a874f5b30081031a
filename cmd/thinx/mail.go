package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/thinx/internal/mail"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var inviteLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Send mail through the configured SMTP account",
}

var mailSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a plain or HTML email",
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		subject, _ := cmd.Flags().GetString("subject")
		body, _ := cmd.Flags().GetString("body")
		html, _ := cmd.Flags().GetBool("html")

		res := mail.NewSender(cfg.Mail).Send(cmd.Context(), to, subject, body, html)
		return reportResult(cmd, res)
	},
}

var mailInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Send a calendar invite",
	Long:  `Send an iCalendar meeting request. Times are local and accept "2006-01-02 15:04" or a bare date for all-day events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := inviteFromFlags(cmd)
		if err != nil {
			return err
		}
		res := mail.NewSender(cfg.Mail).SendInvite(cmd.Context(), inv)
		return reportResult(cmd, res)
	},
}

var mailHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Collect and send the system health report",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := mail.NewProber(cfg.Mail.Health).Collect(cmd.Context())

		if dryRun, _ := cmd.Flags().GetBool("print"); dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n%s", report.Subject(), report.Body())
			return nil
		}

		to, _ := cmd.Flags().GetString("to")
		if to == "" {
			to = cfg.Mail.Health.To
		}
		if to == "" {
			return fmt.Errorf("no recipient: pass --to or set mail.health.to")
		}
		res := mail.NewSender(cfg.Mail).SendHealthReport(cmd.Context(), to, report)
		return reportResult(cmd, res)
	},
}

func inviteFromFlags(cmd *cobra.Command) (mail.Invite, error) {
	flags := cmd.Flags()
	to, _ := flags.GetString("to")
	title, _ := flags.GetString("title")
	description, _ := flags.GetString("description")
	location, _ := flags.GetString("location")
	allDay, _ := flags.GetBool("all-day")
	startValue, _ := flags.GetString("start")
	endValue, _ := flags.GetString("end")
	duration, _ := flags.GetDuration("duration")

	start, err := parseLocalTime(startValue)
	if err != nil {
		return mail.Invite{}, fmt.Errorf("--start: %w", err)
	}
	inv := mail.Invite{
		To:          to,
		Title:       title,
		Start:       start,
		Description: description,
		Location:    location,
		AllDay:      allDay,
	}

	switch {
	case endValue != "":
		if inv.End, err = parseLocalTime(endValue); err != nil {
			return mail.Invite{}, fmt.Errorf("--end: %w", err)
		}
	case duration > 0:
		inv.End = start.Add(duration)
	}

	return inv, inv.Validate()
}

func parseLocalTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time is required")
	}
	for _, layout := range inviteLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (use YYYY-MM-DD HH:MM or YYYY-MM-DD)", value)
}

func reportResult(cmd *cobra.Command, res mail.Result) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}

func addInviteFlags(fs *pflag.FlagSet) {
	fs.String("to", "", "attendee address")
	fs.String("title", "", "event title")
	fs.String("start", "", "start time")
	fs.String("end", "", "end time (default start + 1h, or next day for all-day)")
	fs.Duration("duration", 0, "event length, used when --end is empty")
	fs.String("description", "", "event description")
	fs.String("location", "", "event location")
	fs.Bool("all-day", false, "all-day event")
}

func init() {
	mailSendCmd.Flags().String("to", "", "recipient address")
	mailSendCmd.Flags().String("subject", "", "subject line")
	mailSendCmd.Flags().String("body", "", "message body")
	mailSendCmd.Flags().Bool("html", false, "send the body as HTML")
	_ = mailSendCmd.MarkFlagRequired("to")
	_ = mailSendCmd.MarkFlagRequired("subject")

	addInviteFlags(mailInviteCmd.Flags())
	_ = mailInviteCmd.MarkFlagRequired("to")
	_ = mailInviteCmd.MarkFlagRequired("title")
	_ = mailInviteCmd.MarkFlagRequired("start")

	mailHealthCmd.Flags().String("to", "", "recipient address (default mail.health.to)")
	mailHealthCmd.Flags().Bool("print", false, "print the report instead of sending it")

	mailCmd.AddCommand(mailSendCmd, mailInviteCmd, mailHealthCmd)
	rootCmd.AddCommand(mailCmd)
}
