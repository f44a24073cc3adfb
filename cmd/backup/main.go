package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"schoollunch/internal/config"
	"schoollunch/internal/database"
	"schoollunch/internal/logging"
	"schoollunch/internal/repository"
	"schoollunch/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}

	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	switch os.Args[1] {
	case "export":
		exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
		outputPath := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
		exportCmd.Parse(os.Args[2:])

		if err := handleExport(context.Background(), cfg, *outputPath); err != nil {
			slog.Error("export failed", "error", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, cfg *config.Config, outputPath string) error {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", clock.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}

	backupService := service.NewBackupService(repository.NewSQLStore(db), cfg.DatabaseType, clock)
	slog.Info("exporting database", "path", outputPath, "type", cfg.DatabaseType)
	if _, err := backupService.Export(ctx, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close backup file: %w", err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		slog.Info("export complete", "path", outputPath, "size_mb", fmt.Sprintf("%.2f", float64(info.Size())/1024/1024))
	}
	return nil
}

func printUsage() {
	fmt.Println("School Lunch Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  backup export")
	fmt.Println("  backup export -output backups/lunch.json")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./schoollunch.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
