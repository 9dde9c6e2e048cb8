package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"borrow_analytics/analysis"
	"borrow_analytics/app"
	"borrow_analytics/db"
	"borrow_analytics/models"
	"borrow_analytics/normalize"
	"borrow_analytics/routes"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	historicalFiles []string
	realtimeFiles   []string
	statsMode       string

	rootCmd = &cobra.Command{
		Use:          "borrowd",
		Short:        "Borrow/return reconciliation and usage analytics",
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Ingest JSON or CSV row files, refresh and print the reports",
		RunE:  runIngest,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print statistics of the persisted record set",
		RunE:  runStats,
	}
)

func init() {
	ingestCmd.Flags().StringSliceVar(&historicalFiles, "historical", nil, "historical export files (.json or .csv)")
	ingestCmd.Flags().StringSliceVar(&realtimeFiles, "realtime", nil, "live-feed files (.json or .csv)")
	statsCmd.Flags().StringVar(&statsMode, "mode", "full", "analysis mode: full or current")
	rootCmd.AddCommand(serveCmd, ingestCmd, statsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	application := app.MustNew()
	defer application.Close()

	routes.RegisterRoutes(application.Router, application)

	port := application.Config.Port
	log.Printf("listening on :%s", port)
	return application.Router.Run(":" + port)
}

type sourceFile struct {
	path   string
	source models.Source
	rows   []normalize.Row
}

func runIngest(cmd *cobra.Command, args []string) error {
	var files []*sourceFile
	for _, p := range historicalFiles {
		files = append(files, &sourceFile{path: p, source: models.SourceHistorical})
	}
	for _, p := range realtimeFiles {
		files = append(files, &sourceFile{path: p, source: models.SourceRealtime})
	}
	if len(files) == 0 {
		return errors.New("nothing to ingest: pass --historical and/or --realtime")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 并发解析文件，入库仍是单写者
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, f := range files {
		f := f // per-iteration copy (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := readRows(f.path)
			if err != nil {
				return fmt.Errorf("%s: %w", f.path, err)
			}
			f.rows = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel, cfg.LogJSON)
	eng, dbConn, rdb := app.MustEngine(cfg, logger)
	defer (&app.App{DB: dbConn, RDB: rdb}).Close()
	app.BootstrapRecords(ctx, eng, logger)

	out := struct {
		Reports  []models.IngestReport `json:"reports"`
		Snapshot models.SnapshotInfo   `json:"snapshot"`
	}{}
	for _, f := range files {
		rep, err := eng.Ingest(ctx, f.rows, f.source)
		if err != nil {
			return fmt.Errorf("%s: %w", f.path, err)
		}
		logger.Info("ingested file", slog.String("path", f.path), slog.Int("accepted", rep.Accepted), slog.Int("rejected", rep.Rejected))
		out.Reports = append(out.Reports, rep)
	}
	info, err := eng.Refresh(ctx)
	out.Snapshot = info
	if perr := printJSON(out); perr != nil {
		return perr
	}
	return err
}

func readRows(path string) ([]normalize.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return normalize.DecodeCSV(f)
	}
	return normalize.DecodeJSON(f)
}

func runStats(cmd *cobra.Command, args []string) error {
	mode, err := analysis.ParseMode(statsMode)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel, cfg.LogJSON)
	eng, dbConn, rdb := app.MustEngine(cfg, logger)
	defer (&app.App{DB: dbConn, RDB: rdb}).Close()
	app.BootstrapRecords(ctx, eng, logger)

	out := struct {
		Snapshot  models.SnapshotInfo `json:"snapshot"`
		Stats     models.Stats        `json:"stats"`
		Persisted *int64              `json:"persisted,omitempty"`
		Open      []string            `json:"persistedOpen,omitempty"`
	}{Snapshot: eng.Snapshot(), Stats: eng.Stats(mode)}

	if dbConn != nil {
		repo := db.NewRepo(dbConn)
		n, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		out.Persisted = &n
		open, err := repo.OpenRecords(ctx, "")
		if err != nil {
			return err
		}
		for _, r := range open {
			out.Open = append(out.Open, r.ItemCode)
		}
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
