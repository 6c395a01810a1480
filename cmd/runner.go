package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/ChristianVeneko/chartifydata/internal/auth"
	"github.com/ChristianVeneko/chartifydata/internal/services"
	"github.com/ChristianVeneko/chartifydata/internal/session"
	"github.com/ChristianVeneko/chartifydata/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, store, API client, and lifecycle manager are built lazily on
// first use so commands that never touch them (setup config) stay cheap.
type Runner struct {
	config     *shared.Config
	exchanger  *auth.Exchanger
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	store   *session.SQLiteStore
	spotify *services.SpotifyService
	manager *session.Manager
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Exchanger  *auth.Exchanger
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		exchanger:  opts.Exchanger,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, statsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensure opens the database, runs migrations, and wires the session store,
// API client, and lifecycle manager. Safe to call more than once.
func (r *Runner) ensure(ctx context.Context) error {
	if r.store != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.store = session.NewSQLiteStore(db)
	r.spotify = services.NewSpotifyService(storeTokenSource(r.store), r.httpClient)

	// a typed nil must not leak into the interface field
	var refresher session.Refresher
	if r.exchanger != nil {
		refresher = r.exchanger
	}
	r.manager = session.NewManager(r.store, refresher, r.spotify, session.Options{
		Margin:   r.config.App.SafetyMargin(),
		Interval: r.config.App.CheckInterval(),
		Logger:   r.logger,
	})

	return nil
}

// close releases the database handle if one was opened.
func (r *Runner) close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
		r.store = nil
	}
}

// storeTokenSource reads the current access token from the session store for
// each API request.
func storeTokenSource(store session.Store) services.TokenSource {
	return services.TokenSourceFunc(func(context.Context) (string, error) {
		creds, err := session.Load(store)
		if err != nil {
			return "", err
		}
		if creds.AccessToken == "" {
			return "", fmt.Errorf("%w: run 'chartify auth login' first", shared.ErrNotAuthenticated)
		}
		return creds.AccessToken, nil
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
