package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/medicalcare-backend/pkg/config"
	"github.com/angelmondragon/medicalcare-backend/pkg/db"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"github.com/angelmondragon/medicalcare-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; db commands default to the embedded set, create/validate to "+migrate.DefaultDir)
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	fileDir := *dir
	if fileDir == "" {
		fileDir = migrate.DefaultDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create\n")
		}
		path, err := migrate.CreateSQLMigration(fileDir, *name)
		if err != nil {
			exitf("failed to create migration: %v\n", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(fileDir); err != nil {
			exitf("migration validation failed: %v\n", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	if cfg.DB.IsSQLite() {
		exitf("goose migrations target postgres; sqlite schemas are created with MEDCARE_AUTO_MIGRATE\n")
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.SQLDB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")
	if err := runCommand(ctx, sqlDB, *cmd, migrate.Source(*dir), *version); err != nil {
		logg.Error(ctx, "migration failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func runCommand(ctx context.Context, sqlDB *sql.DB, cmd string, fsys fs.FS, version string) error {
	var (
		results []migrate.Result
		err     error
	)
	switch cmd {
	case "up":
		results, err = migrate.Up(ctx, sqlDB, fsys)
	case "down":
		results, err = migrate.Down(ctx, sqlDB, fsys)
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		results, err = migrate.MigrateToVersion(ctx, sqlDB, fsys, version)
	case "status":
		statuses, statusErr := migrate.Statuses(ctx, sqlDB, fsys)
		if statusErr != nil {
			return statusErr
		}
		for _, st := range statuses {
			state := "pending"
			if st.Applied {
				state = "applied"
			}
			fmt.Printf("%-8s %d %s\n", state, st.Version, st.Path)
		}
		return nil
	default:
		return fmt.Errorf("unknown -cmd value: %s", cmd)
	}
	if err != nil {
		return err
	}
	for _, res := range results {
		fmt.Printf("%-4s %d %s\n", res.Direction, res.Version, res.Path)
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
