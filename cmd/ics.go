package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/logger"
	"github.com/hrcal/hrcal/internal/source"
)

var importType string

var importCmd = &cobra.Command{
	Use:   "import <file.ics>",
	Short: "Copy the events of an ICS file into the event file",
	Long: `Import adds every VEVENT of the file to the event file. Events whose
UID is already stored are skipped, so importing the same file twice is
harmless.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <file.ics>",
	Short: "Write the event file as an ICS calendar",
	Long:  `Export writes every stored event, recurring series as RRULEs, to an ICS file. Use "-" for stdout.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	importCmd.Flags().StringVarP(&importType, "type", "t", "", "Event type for every imported event (default: first CATEGORIES value)")
	rootCmd.AddCommand(importCmd, exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if !cfg.Editable() {
		return fmt.Errorf("calendar is read-only")
	}

	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	events, err := source.ParseICS(body, source.ParseOptions{Type: importType}, logger.Component(log, "import"))
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	store := openStore()
	defer store.Close()

	n, err := store.Import(background(cmd), events)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d events into %s\n", n, len(events), store.Path())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	store := openStore()
	defer store.Close()

	events, err := store.All()
	if err != nil {
		return err
	}

	if args[0] == "-" {
		if err := source.ExportICS(cmd.OutOrStdout(), events, time.Now()); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	} else if err := exportFile(args[0], events); err != nil {
		return err
	}
	log.Info().Int("events", len(events)).Str("file", args[0]).Msg("exported")
	return nil
}

// exportFile writes events to path. An error from closing the file is
// returned like a write error.
func exportFile(path string, events []calendar.Event) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()

	if err := source.ExportICS(f, events, time.Now()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
