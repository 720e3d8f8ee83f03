package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/config"
	"github.com/hrcal/hrcal/internal/logger"
	"github.com/hrcal/hrcal/internal/source"
	"github.com/hrcal/hrcal/internal/ui"
)

var (
	cfgFile   string
	eventFile string
	viewName  string
	readOnly  bool
	logLevel  string

	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hrcal",
	Short: "A terminal calendar for leave, holidays, reviews and meetings",
	Long: `hrcal shows the HR calendar in month, week, day and agenda views.
Events are kept in a local YAML file; team calendars can be added as
read-only ICS feeds.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               runTUI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: search the usual locations)")
	rootCmd.PersistentFlags().StringVarP(&eventFile, "file", "f", "", "Event file to use instead of the configured one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	rootCmd.Flags().StringVar(&viewName, "view", "", "Startup view (month, week, day, agenda)")
	rootCmd.Flags().BoolVar(&readOnly, "read-only", false, "Open the calendar without editing")
}

// setup loads the configuration and opens the log before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if eventFile != "" {
		cfg.EventFile = eventFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if readOnly {
		cfg.ReadOnly = true
	}
	if viewName != "" {
		v, err := calendar.ParseView(viewName)
		if err != nil {
			return err
		}
		cfg.StartupView = v
	}

	log, logCloser, err = logger.New(logger.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	log.Debug().Str("command", cmd.Name()).Str("events", cfg.EventFile).Msg("starting")
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

// openStore opens the configured event file.
func openStore() *source.FileStore {
	return source.NewFileStore(cfg.EventFile, logger.Component(log, "store"), source.WithReadOnly(!cfg.Editable()))
}

// openSources combines the event file with the configured feeds. The store
// comes first so its copy of an event wins over a feed's.
func openSources(store *source.FileStore) *source.CompositeSource {
	composite := source.NewCompositeSource(logger.Component(log, "sources"), store)
	for _, feed := range cfg.Feeds {
		composite.AddSource(source.NewICSFeed(feed.Name, feed.Type, feed.URL, logger.Component(log, "feed")))
	}
	return composite
}

func runTUI(cmd *cobra.Command, args []string) error {
	store := openStore()
	sources := openSources(store)
	defer func() {
		if err := sources.Close(); err != nil {
			log.Warn().Err(err).Msg("closing sources")
		}
	}()

	uiLog := logger.Component(log, "ui")
	model := ui.NewModel(cfg, sources, store, uiLog)
	model.OnDialogChange(func(open bool) {
		uiLog.Debug().Bool("open", open).Msg("dialog state changed")
	})

	changes, err := sources.Watch()
	if err != nil {
		log.Warn().Err(err).Msg("watching sources failed, changes need a manual refresh")
	} else {
		model.WatchChanges(changes)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())

	if cfg.AutoRefresh {
		c := cron.New(cron.WithLogger(cronLogger{logger.Component(log, "cron")}))
		if _, err := c.AddFunc(cfg.RefreshCron, func() { p.Send(ui.ReloadMsg{}) }); err != nil {
			return fmt.Errorf("refresh schedule %q: %w", cfg.RefreshCron, err)
		}
		c.Start()
		defer c.Stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// cronLogger routes scheduler messages to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
