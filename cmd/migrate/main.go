package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/database"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/model"
	"github.com/iliyamo/train-seat-booking/internal/repository"
	"github.com/iliyamo/train-seat-booking/internal/utils"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "command: up|down|status|redo|reset|version|create-admin")
	version := flag.String("version", "", "target version for -cmd=version")
	email := flag.String("email", "", "admin email for -cmd=create-admin")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password for -cmd=create-admin")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{ServiceName: "migrate", Level: logger.ParseLevel(cfg.LogLevel)})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.Env, "cmd": *cmd})

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	requireResource(ctx, logg, "database", err)
	defer db.Close()

	switch *cmd {
	case "up", "down", "status", "redo", "reset":
		if err := database.Migrate(ctx, db, *cmd); err != nil {
			fail(err)
		}

	case "version":
		if *version == "" {
			fail(errors.New("missing -version for version command"))
		}
		if err := database.MigrateToVersion(ctx, db, *version); err != nil {
			fail(err)
		}

	case "create-admin":
		if *email == "" || len(*password) < 8 {
			fail(errors.New("create-admin needs -email and a -password of at least 8 characters"))
		}
		hash, err := utils.HashPassword(*password, cfg.BcryptCost)
		if err != nil {
			fail(err)
		}
		id, err := repository.NewUserRepo(db).Create(ctx, *email, hash, model.RoleAdmin)
		if errors.Is(err, repository.ErrEmailExists) {
			fail(fmt.Errorf("user %s already exists", *email))
		}
		if err != nil {
			fail(err)
		}
		logg.Info(logg.WithField(ctx, "user_id", id), "admin created")

	default:
		fail(fmt.Errorf("unknown -cmd value: %s", *cmd))
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
