package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/erazemk/achados/internal/api"
	"github.com/erazemk/achados/internal/config"
	"github.com/erazemk/achados/internal/db"
	"github.com/erazemk/achados/internal/metrics"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/store"
)

const usage = `Usage: achados [flags]

Flags:
  -d, -db <path>          SQLite database path (env ACHADOS_DB, default: achados.sqlite3)
  -a, -addr <host:port>   listen address (env ACHADOS_ADDR, default: :8080)
  -u, -user <name>        admin username on first run (env ACHADOS_ADMIN_USER, default: admin)
  -l, -log <path>         log file path (env ACHADOS_LOG, default: stdout/stderr only)
  -s, -seed <path>        YAML file with categories and locations (env ACHADOS_SEED)
  -h, -help               show this help and exit

Settings are also read from a .env file in the working directory.
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags applies command-line overrides on top of cfg.
func parseFlags(args []string, cfg *config.Config, out io.Writer) error {
	fs := flag.NewFlagSet("achados", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	fs.StringVar(&cfg.SeedPath, "seed", cfg.SeedPath, "")
	fs.StringVar(&cfg.SeedPath, "s", cfg.SeedPath, "")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return cfg.Validate()
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	if err := parseFlags(args, cfg, stdout); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(stdout, stderr, cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); errors.Is(err, os.ErrNotExist) {
		password, err := initDatabase(cfg.DBPath, cfg.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		printInitResult(stdout, cfg.DBPath, cfg.AdminUser, password)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedPath != "" {
		if err := applySeed(ctx, database, cfg.SeedPath); err != nil {
			return err
		}
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading jwt secret: %w", err)
	}

	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, jwtSecret, api.Options{
		LoginRate:  rate.Limit(cfg.LoginRate),
		LoginBurst: cfg.LoginBurst,
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server started", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped, closing database")
	return nil
}

// applySeed loads categories and locations from a YAML file.
func applySeed(ctx context.Context, database *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed: %w", err)
	}
	defer f.Close()

	seed, err := store.ParseSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	created, err := store.ApplySeed(ctx, database, seed)
	if err != nil {
		return err
	}
	if err := store.SetSetting(ctx, database, store.SettingLastSeed, path); err != nil {
		return err
	}
	slog.Info("seed applied", "path", path, "created", created)
	return nil
}

// initDatabase creates a new database, migrates it, and creates the admin
// user. On failure the partial file is removed.
func initDatabase(path, adminUsername string) (password string, err error) {
	database, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		database.Close()
		if err != nil {
			os.Remove(path)
		}
	}()

	if err = db.Migrate(database); err != nil {
		return "", fmt.Errorf("migrating: %w", err)
	}

	password, err = generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err = store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// printInitResult prints the database initialization result.
func printInitResult(w io.Writer, dbPath, username, password string) {
	fmt.Fprintf(w, "Database created: %s\n", dbPath)
	fmt.Fprintln(w, "Schema initialized.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin account created:")
	fmt.Fprintf(w, "  Username: %s\n", username)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
	fmt.Fprintln(w, "The admin can change it after logging in.")
	fmt.Fprintln(w)
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
