// Command seed-score-table loads TOEIC raw-to-scaled conversion rows from an
// .xlsx sheet into the score table.
//
//	seed-score-table -file score_table.xlsx [-sheet Sheet1] [-migrate]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SAP-F-2025/exam-session-service/internal/config"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/pkg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed-score-table:", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "path to the .xlsx file (required)")
	sheet := flag.String("sheet", "", "sheet name, defaults to the first sheet")
	migrate := flag.Bool("migrate", false, "run migrations before importing")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("-file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := utils.NewLogger(cfg.Environment)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if *migrate {
		if err := pkg.AutoMigrate(db); err != nil {
			return err
		}
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", *file, err)
	}
	defer f.Close()

	importer := services.NewScoreTableImporter(postgres.NewRepository(db), services.NewServiceLogger(logger.Slog(), services.LogConfig{
		Service:   "exam-session-service",
		Component: "score-table-import",
	}))

	result, err := importer.ImportFromExcel(ctx, f, *sheet)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d invalid cells, nothing imported", len(result.Errors))
	}
	return nil
}
