package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/parser"
)

var listDays int

var listCmd = &cobra.Command{
	Use:   "list [date]",
	Short: "Print the agenda and exit",
	Long: `Print the events of the given day (default today) and the days after
it, including feed events, in a simple text format. The date accepts the
same expressions as the goto prompt, e.g. "tomorrow" or "next monday".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listDays, "days", "d", 1, "Number of days to print")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	day := calendar.StartOfDay(time.Now())
	if len(args) == 1 {
		parsed, err := parser.NewTimeParser().Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[0], err)
		}
		if parsed.Text != "" {
			return fmt.Errorf("invalid date %q: could not read %q", args[0], parsed.Text)
		}
		day = calendar.StartOfDay(parsed.Date)
	}
	if listDays < 1 {
		listDays = 1
	}

	sources := openSources(openStore())
	defer sources.Close()

	end := day.AddDate(0, 0, listDays)
	events, err := sources.Events(background(cmd), day, end)
	if err != nil {
		return fmt.Errorf("error getting events: %w", err)
	}
	events = calendar.Ingest(events)
	calendar.SortEvents(events)

	out := cmd.OutOrStdout()
	for d := day; d.Before(end); d = d.AddDate(0, 0, 1) {
		fmt.Fprintf(out, "Events for %s:\n", d.Format(cfg.DateFormat))
		dayEvents := calendar.EventsForDay(events, d)
		if len(dayEvents) == 0 {
			fmt.Fprintln(out, "  No events found.")
			continue
		}
		for _, ev := range dayEvents {
			fmt.Fprintf(out, "  %s - %s%s\n", listTime(ev, d), ev.Title, listTags(ev))
			if ev.Location != "" {
				fmt.Fprintf(out, "    @ %s\n", ev.Location)
			}
		}
	}
	return nil
}

func listTime(ev calendar.Event, day time.Time) string {
	switch {
	case ev.AllDay:
		return "All day"
	case !calendar.SameDay(ev.Start, day):
		return "until " + ev.End.Format(cfg.TimeFormat)
	}
	return ev.Start.Format(cfg.TimeFormat) + "-" + ev.End.Format(cfg.TimeFormat)
}

func listTags(ev calendar.Event) string {
	var tags []string
	if ev.Type != "" {
		tags = append(tags, strings.ToLower(ev.Type))
	}
	if ev.IsExternal() {
		tags = append(tags, "external")
	}
	if ev.Recurring {
		tags = append(tags, "repeats")
	}
	if ev.RSVP != "" {
		tags = append(tags, string(ev.RSVP))
	}
	if len(tags) == 0 {
		return ""
	}
	return " [" + strings.Join(tags, ", ") + "]"
}

// background is used by commands that cobra did not give a context.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
