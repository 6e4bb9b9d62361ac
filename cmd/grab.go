package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"primaguide/internal/assemble"
	"primaguide/internal/cachestore"
	"primaguide/internal/config"
	"primaguide/internal/domain"
	"primaguide/internal/fetch"
	"primaguide/internal/render"
	"primaguide/internal/repository"
	"primaguide/internal/repository/sqlite"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	grabOffset int
	grabDays   int
	grabOutput string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var grabCmd = &cobra.Command{
	Use:   "grab",
	Short: "Fetch the guide for the configured window and write XMLTV",
	Long: `Loads the cached guide, fetches only the days missing from the
requested window, merges them, persists the cache and renders the result
as XMLTV.`,
	RunE: runGrab,
}

func init() {
	rootCmd.AddCommand(grabCmd)
	grabCmd.Flags().IntVar(&grabOffset, "offset", 0, "days from today to start grabbing (overrides config)")
	grabCmd.Flags().IntVar(&grabDays, "days", 0, "number of days to grab (overrides config)")
	grabCmd.Flags().StringVar(&grabOutput, "output", "", "output file, \"-\" for stdout (overrides config)")
}

func runGrab(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgFile, logger)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("offset") {
		cfg.Offset = grabOffset
	}
	if cmd.Flags().Changed("days") {
		cfg.Days = grabDays
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = grabOutput
	}
	cfg.Clamp(logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	today := domain.Today()
	requested := cfg.RequestedRange(today)

	// Without a cache file the run is ephemeral: fetch everything, persist
	// nothing.
	var store domain.GuideStore
	var guide *domain.Guide
	if cfg.CacheFile != "" {
		store = cachestore.New(cfg.CacheFile, logger)
		guide = store.Load()
	} else {
		guide = domain.NewGuide(today)
	}

	fetcher := fetch.NewClient("", cfg.Email, cfg.Password, logger)
	asm := assemble.New(fetcher, logger)

	fetched, err := asm.Run(ctx, guide, requested, cfg.FetchOptions())
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"fetched":    fetched,
		"interval":   guide.Interval.String(),
		"programmes": len(guide.Programmes),
	}).Info("Guide assembled")

	if store != nil {
		if err := store.Save(guide); err != nil {
			return err
		}
	}

	if cfg.ArchiveDB != "" {
		archiveGuide(ctx, cfg.ArchiveDB, guide, requested, fetched)
	}

	return writeOutput(cfg.Output, guide)
}

// archiveGuide records the run in the optional sqlite archive. The archive
// is an accessory, so failures are logged and never fail the run.
func archiveGuide(ctx context.Context, path string, guide *domain.Guide, requested domain.Interval, fetched int) {
	db, err := sqlite.NewDB(path)
	if err != nil {
		logger.WithError(err).Warn("Failed to open archive database")
		return
	}
	defer db.Close()

	if err := sqlite.Migrate(db.DB); err != nil {
		logger.WithError(err).Warn("Failed to migrate archive database")
		return
	}

	repo := sqlite.NewGuideArchiveRepository(db)

	entries := make([]domain.ProgrammeEntry, 0, len(guide.Programmes))
	for _, e := range guide.Programmes {
		entries = append(entries, e)
	}
	if err := repo.UpsertProgrammes(ctx, entries); err != nil {
		logger.WithError(err).Warn("Failed to archive programmes")
		return
	}

	run := &repository.FetchRun{
		RangeStart:     requested.Start,
		RangeEnd:       requested.End,
		FetchedDays:    fetched,
		ProgrammeCount: len(guide.Programmes),
	}
	if err := repo.RecordRun(ctx, run); err != nil {
		logger.WithError(err).Warn("Failed to record fetch run")
		return
	}

	if count, err := repo.CountProgrammes(ctx); err == nil {
		logger.WithField("archived", count).Debug("Archive updated")
	}
}

// writeOutput renders the guide as XMLTV to the configured destination.
func writeOutput(output string, guide *domain.Guide) error {
	var w io.Writer = os.Stdout
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	channels := make([]domain.Channel, 0, len(guide.Channels))
	for _, ch := range guide.Channels {
		channels = append(channels, ch)
	}
	programmes := make([]domain.ProgrammeEntry, 0, len(guide.Programmes))
	for _, e := range guide.Programmes {
		programmes = append(programmes, e)
	}

	return render.New().Render(w, channels, programmes)
}
