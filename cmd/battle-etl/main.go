package main

import (
	"context"
	"fmt"
	"iter"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/condensedtea/turf-ratings/internal/archive"
	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/collector"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/condensedtea/turf-ratings/internal/export"
	"github.com/condensedtea/turf-ratings/internal/logging"
	"github.com/condensedtea/turf-ratings/internal/rating"
	"github.com/condensedtea/turf-ratings/internal/statink"
)

var (
	archivePath  string
	exportPath   string
	fromExport   string
	extension    string
	statinkURL   string
	observations bool
	topN         int
	logLevel     string
	logFormat    string
)

type matchSource interface {
	Matches(ctx context.Context) iter.Seq2[battle.Match, error]
}

func main() {
	_ = godotenv.Load()

	flag.StringVar(&archivePath, "archive", "", "Path of the stat.ink zip archive to decode")
	flag.StringVar(&exportPath, "export", "", "Write decoded battles to this gzip JSON lines file and read them back from it")
	flag.StringVar(&fromExport, "from-export", "", "Read battles from an export instead of an archive")
	flag.StringVar(&extension, "extension", ".csv", "Extension of the archive members holding battle tables")
	flag.StringVar(&statinkURL, "statink-url", "", "Load reference data from this stat.ink instance instead of the embedded snapshot")
	flag.BoolVar(&observations, "observations", false, "Build the loadout index and observation vectors")
	flag.IntVar(&topN, "top", 10, "Number of loadouts per mode to log when no database is configured")
	flag.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format: text or json")
	flag.Parse()

	if archivePath == "" && flag.NArg() > 0 {
		archivePath = flag.Arg(0)
	}
	if (archivePath == "") == (fromExport == "") {
		log.Fatal("exactly one of --archive or --from-export must be specified")
	}

	logging.Setup(logLevel, logFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cat := catalog.Default()
	if statinkURL != "" {
		client, err := statink.NewClient(statinkURL, http.DefaultTransport)
		if err != nil {
			log.Fatalf("failed to init stat.ink client: %s", err)
		}
		if cat, err = client.LoadCatalog(ctx); err != nil {
			log.Fatalf("failed to load catalog: %s", err)
		}
	}
	for _, problem := range cat.ReskinProblems() {
		slog.Warn("inconsistent reskin table", "problem", problem)
	}

	var src matchSource
	if fromExport != "" {
		src = export.Open(fromExport, cat)
	} else {
		src = archive.New(archivePath, battle.NewDecoder(cat),
			archive.WithLogger(slog.Default()),
			archive.WithExtension(extension),
			archive.WithProgress(progressLogger()),
		)
	}

	if exportPath != "" {
		n, err := export.WriteFile(exportPath, src.Matches(ctx))
		if err != nil {
			log.Fatalf("failed to export battles: %s", err)
		}
		slog.Info("battles exported", "path", exportPath, "battles", n)
		src = export.Open(exportPath, cat)
	}

	if observations {
		if err := logObservations(ctx, src, cat); err != nil {
			log.Fatalf("failed to build observations: %s", err)
		}
	}

	dbDsn, ok := os.LookupEnv("DB_DSN")
	if !ok {
		if err := logRatings(ctx, src, cat); err != nil {
			log.Fatalf("failed to rate loadouts: %s", err)
		}
		return
	}

	dbClient, err := db.NewClient(ctx, dbDsn)
	if err != nil {
		log.Fatalf("failed to init db client: %s", err)
	}
	defer dbClient.Close()

	if err = dbClient.CreateTables(ctx); err != nil {
		log.Fatalf("failed to create tables: %s", err)
	}

	c := collector.New(dbClient, src, cat)

	slog.Info("collecting battles")

	if err = c.Collect(ctx); err != nil {
		log.Fatalf("failed to run collector: %s", err)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// progressLogger logs archive progress every ten percent.
func progressLogger() func(archive.Progress) {
	var lastDecile int64 = -1
	return func(p archive.Progress) {
		if p.Total == 0 {
			return
		}
		decile := p.Read * 10 / p.Total
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		slog.Info("reading archive", "member", p.Member, "progress", fmt.Sprintf("%d%%", decile*10))
	}
}

func logObservations(ctx context.Context, src matchSource, cat *catalog.Catalog) error {
	idx, err := rating.LoadoutIndex(ctx, src, cat)
	if err != nil {
		return err
	}

	obs, err := rating.BuildObservations(ctx, src, idx, cat)
	if err != nil {
		return err
	}

	alphaWins := 0
	for _, w := range obs.AlphaWon {
		alphaWins += int(w)
	}

	slog.Info("observations built", "loadouts", idx.Len(), "battles", len(obs.X), "alpha_wins", alphaWins)
	return nil
}

func logRatings(ctx context.Context, src matchSource, cat *catalog.Catalog) error {
	rater := rating.NewRater(cat)

	n, err := rater.RateAll(ctx, src)
	if err != nil {
		return err
	}

	slog.Info("battles rated", "battles", n)

	shown := make(map[battle.ModeKey]int)
	for _, r := range rater.Ratings() {
		if shown[r.Mode] >= topN {
			continue
		}
		shown[r.Mode]++
		slog.Info("loadout rating",
			"mode", r.Mode,
			"loadout", r.Loadout,
			"rating", fmt.Sprintf("%.2f", r.Mu),
			"uncertainty", fmt.Sprintf("%.2f", r.Sigma),
			"played", r.Played,
			"won", r.Won,
		)
	}

	return nil
}
