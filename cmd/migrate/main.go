// Command migrate manages the CRM database schema.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/migration"
	"github.com/crm/backend/internal/infrastructure/persistence"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "", "Migrations directory (default: the migrations embedded in the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if migrationsPath != "" {
		if migrationsPath, err = filepath.Abs(migrationsPath); err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
	}

	// create and list work on files only.
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		dir := migrationsPath
		if dir == "" {
			dir = defaultMigrationsDir
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(dir, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return
	case "list":
		dir := migrationsPath
		if dir == "" {
			dir = defaultMigrationsDir
		}
		files, err := migration.ListMigrations(dir)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, f := range files {
			fmt.Printf("  %06d  %s\n", f.Version, f.Name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if command == "seed-admin" {
		seedAdmin(log, cfg, args[1:])
		return
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, migrationsPath, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step":
		var n int
		if n, err = strconv.Atoi(argAt(log, args, 1, "step <n>")); err == nil {
			err = m.Steps(n)
		}
	case "goto":
		var v uint64
		if v, err = strconv.ParseUint(argAt(log, args, 1, "goto <version>"), 10, 32); err == nil {
			err = m.GoTo(uint(v))
		}
	case "force":
		var v int
		if v, err = strconv.Atoi(argAt(log, args, 1, "force <version>")); err == nil {
			err = m.Force(v)
		}
	case "version":
		var (
			version uint
			dirty   bool
		)
		if version, dirty, err = m.Version(); err == nil {
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func argAt(log *zap.Logger, args []string, i int, usage string) string {
	if len(args) <= i {
		log.Fatal("Missing argument. Usage: migrate " + usage)
	}
	return args[i]
}

// seedAdmin creates the first administrator so that the API can be used at
// all. The password comes from CRM_ADMIN_PASSWORD to keep it out of shell
// history.
func seedAdmin(log *zap.Logger, cfg *config.Config, args []string) {
	email := argAt(log, append([]string{"seed-admin"}, args...), 1, "seed-admin <email>")
	password := os.Getenv("CRM_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("CRM_ADMIN_PASSWORD must be set")
	}

	database, err := persistence.NewDatabase(&cfg.Database, log, "warn")
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx := context.Background()
	users := persistence.NewGormUserRepository(database.DB, event.NewOutboxPublisher(event.NewDefaultSerializer()))
	exists, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		log.Fatal("Failed to look up user", zap.Error(err))
	}
	if exists {
		log.Info("Administrator already exists", zap.String("email", email))
		return
	}

	admin, err := identity.NewUser("System", "Admin", email, password, access.RoleAdmin)
	if err != nil {
		log.Fatal("Invalid administrator", zap.Error(err))
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal("Failed to create administrator", zap.Error(err))
	}
	log.Info("Administrator created", zap.String("email", email), zap.String("id", admin.ID.String()))
}

func printUsage() {
	fmt.Println(`CRM database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show the current version
  force <version>       Record a version without running it (clears dirty state)
  create <name> [desc]  Scaffold a new migration pair
  list                  List migrations on disk
  seed-admin <email>    Create the first administrator (password from CRM_ADMIN_PASSWORD)

Flags:
  -path string          Migrations directory (default: embedded migrations)
  -log-level string     debug, info, warn, error (default: info)`)
}
