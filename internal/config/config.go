package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hrcal/hrcal/internal/calendar"
)

// Feed is a read-only external calendar declared with `set ics_feed`.
type Feed struct {
	Name string
	Type string // event type assigned to every event of the feed
	URL  string // file path or http(s) URL
}

type Config struct {
	// File settings
	EventFile string
	Feeds     []Feed

	// Display settings
	WeekStartDay   time.Weekday
	TimeFormat     string
	DateFormat     string
	StartupView    calendar.View
	RowsPerHour    int
	MaxMonthEvents int

	// UI settings
	Colors      map[string]string
	KeyBindings map[string]string // key -> action
	Categories  []calendar.Category

	// Behavior settings
	CanEdit       bool
	ReadOnly      bool
	AutoRefresh   bool
	RefreshCron   string
	ConfirmDelete bool

	// Logging
	LogFile  string
	LogLevel string
}

var (
	setRe      = regexp.MustCompile(`^set\s+(\w+)\s+(.+)$`)
	bindRe     = regexp.MustCompile(`^bind\s+(\S+)\s+(\S+)$`)
	colorRe    = regexp.MustCompile(`^color\s+(\w+)\s+(.+)$`)
	categoryRe = regexp.MustCompile(`^category\s+(\S+)\s+(\w+)\s+(.+)$`)
)

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		EventFile: filepath.Join(home, ".local", "share", "hrcal", "events.yaml"),

		WeekStartDay:   time.Sunday,
		TimeFormat:     "15:04",
		DateFormat:     "Jan 2, 2006",
		StartupView:    calendar.ViewMonth,
		RowsPerHour:    2,
		MaxMonthEvents: 3,

		Colors: map[string]string{
			"normal":   "252",
			"today":    "220",
			"selected": "220",
			"weekend":  "39",
			"header":   "220",
			"muted":    "241",
			"now":      "196",
		},

		KeyBindings: DefaultKeyBindings(),
		Categories:  calendar.DefaultCategories(),

		CanEdit:       true,
		AutoRefresh:   true,
		RefreshCron:   "@every 5m",
		ConfirmDelete: true,

		LogFile:  defaultLogFile(home),
		LogLevel: "info",
	}
}

// DefaultKeyBindings maps keys to UI actions.
func DefaultKeyBindings() map[string]string {
	return map[string]string{
		"q":         "quit",
		"ctrl+c":    "quit",
		"?":         "help",
		"t":         "today",
		"r":         "refresh",
		"n":         "new_event",
		"enter":     "open_event",
		"tab":       "next_event",
		"shift+tab": "prev_event",
		"m":         "move_event",
		"h":         "left",
		"left":      "left",
		"l":         "right",
		"right":     "right",
		"k":         "up",
		"up":        "up",
		"j":         "down",
		"down":      "down",
		">":         "next_period",
		"]":         "next_period",
		"<":         "prev_period",
		"[":         "prev_period",
		"v":         "cycle_view",
		"M":         "view_month",
		"W":         "view_week",
		"D":         "view_day",
		"A":         "view_agenda",
		" ":         "select_date",
		"g":         "goto_date",
		"esc":       "cancel",
	}
}

func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	for _, path := range searchPaths() {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); err == nil {
			if err := config.loadFromFile(path); err != nil {
				return nil, fmt.Errorf("error loading config from %s: %w", path, err)
			}
			break
		}
	}

	return config, nil
}

func searchPaths() []string {
	home := os.Getenv("HOME")
	paths := []string{os.Getenv("HRCAL_CONFIG")}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "hrcal", "hrcalrc"))
	}
	return append(paths,
		filepath.Join(home, ".config", "hrcal", "hrcalrc"),
		filepath.Join(home, ".hrcalrc"),
	)
}

// LoadFile applies an explicit rc file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := config.loadFromFile(path); err != nil {
		return nil, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) loadFromFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	customCategories := false

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// The first category line replaces the built-in legend.
		if !customCategories && strings.HasPrefix(line, "category") {
			c.Categories = nil
			customCategories = true
		}

		if err := c.parseLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
	}

	return scanner.Err()
}

func (c *Config) parseLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	// set variable value
	if matches := setRe.FindStringSubmatch(line); matches != nil {
		return c.setVariable(matches[1], matches[2])
	}

	// bind key action
	if matches := bindRe.FindStringSubmatch(line); matches != nil {
		c.KeyBindings[matches[1]] = matches[2]
		return nil
	}

	// color element color_spec
	if matches := colorRe.FindStringSubmatch(line); matches != nil {
		c.Colors[matches[1]] = strings.Trim(matches[2], `"'`)
		return nil
	}

	// category id palette_color display name
	if matches := categoryRe.FindStringSubmatch(line); matches != nil {
		color := calendar.Color(strings.ToLower(matches[2]))
		if !color.Valid() {
			return fmt.Errorf("invalid category color: %s", matches[2])
		}
		c.Categories = append(c.Categories, calendar.Category{
			ID:     matches[1],
			Name:   strings.Trim(matches[3], `"'`),
			Color:  color,
			Active: true,
		})
		return nil
	}

	return fmt.Errorf("unknown config line: %s", line)
}

func (c *Config) setVariable(name, value string) error {
	// Remove quotes if present
	value = strings.Trim(value, `"'`)

	switch name {
	case "event_file":
		c.EventFile = expandHome(strings.TrimSpace(value))

	case "ics_feed":
		feed, err := parseFeed(value)
		if err != nil {
			return err
		}
		c.Feeds = append(c.Feeds, feed)

	case "week_start_day":
		switch strings.ToLower(value) {
		case "sunday", "sun", "0":
			c.WeekStartDay = time.Sunday
		case "monday", "mon", "1":
			c.WeekStartDay = time.Monday
		default:
			return fmt.Errorf("invalid week_start_day: %s", value)
		}

	case "time_format":
		c.TimeFormat = value

	case "date_format":
		c.DateFormat = value

	case "startup_view":
		view, err := calendar.ParseView(value)
		if err != nil {
			return err
		}
		c.StartupView = view

	case "rows_per_hour":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 4 {
			return fmt.Errorf("invalid rows_per_hour: %s", value)
		}
		c.RowsPerHour = n

	case "max_month_events":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid max_month_events: %s", value)
		}
		c.MaxMonthEvents = n

	case "can_edit":
		c.CanEdit = parseBool(value)

	case "read_only":
		c.ReadOnly = parseBool(value)

	case "auto_refresh":
		c.AutoRefresh = parseBool(value)

	case "refresh_cron":
		if _, err := cron.ParseStandard(value); err != nil {
			return fmt.Errorf("invalid refresh_cron %q: %w", value, err)
		}
		c.RefreshCron = value

	case "confirm_delete":
		c.ConfirmDelete = parseBool(value)

	case "log_file":
		c.LogFile = expandHome(value)

	case "log_level":
		switch strings.ToLower(value) {
		case "trace", "debug", "info", "warn", "error", "disabled":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log_level: %s", value)
		}

	default:
		return fmt.Errorf("unknown config variable: %s", name)
	}

	return nil
}

// parseFeed reads name|type|url. The type may be left empty.
func parseFeed(value string) (Feed, error) {
	parts := strings.SplitN(value, "|", 3)
	if len(parts) != 3 {
		return Feed{}, fmt.Errorf("invalid ics_feed %q: want name|type|url", value)
	}
	feed := Feed{
		Name: strings.TrimSpace(parts[0]),
		Type: strings.TrimSpace(parts[1]),
		URL:  expandHome(strings.TrimSpace(parts[2])),
	}
	if feed.Name == "" || feed.URL == "" {
		return Feed{}, fmt.Errorf("invalid ics_feed %q: name and url are required", value)
	}
	return feed, nil
}

// Action returns the action bound to key, if any.
func (c *Config) Action(key string) string {
	return c.KeyBindings[key]
}

// Editable reports whether the UI may create and change events.
func (c *Config) Editable() bool {
	return c.CanEdit && !c.ReadOnly
}

func parseBool(value string) bool {
	v := strings.ToLower(value)
	return v == "true" || v == "yes" || v == "1"
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func defaultLogFile(home string) string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "hrcal", "hrcal.log")
	}
	return filepath.Join(home, ".local", "state", "hrcal", "hrcal.log")
}
