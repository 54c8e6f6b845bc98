package core

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/docrlabs/docr-go/internal/assets"
	"github.com/docrlabs/docr-go/internal/config"
	"github.com/docrlabs/docr-go/internal/db"
	"github.com/docrlabs/docr-go/internal/dispatch"
	"github.com/docrlabs/docr-go/internal/jobs"
	"github.com/docrlabs/docr-go/internal/websocket"
)

// App holds the core components of the application that are shared between
// the server, the maintenance jobs and the CLI. It implements jobs.JobContext.
type App struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	dispatcher *dispatch.Dispatcher
	version    string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, preparing storage directories, initializing the database
// connection, and running migrations.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	app := NewApp(cfg, database, hub, version)
	log.Println("Core application setup complete.")
	return app, nil
}

// NewApp assembles an App from already-initialized components. Tests use it
// with an in-memory database.
func NewApp(cfg *config.Config, database *sql.DB, hub *websocket.Hub, version string) *App {
	app := &App{
		config:  cfg,
		db:      database,
		wsHub:   hub,
		version: version,
	}
	app.jobManager = jobs.NewManager(app)
	return app
}

func (a *App) Config() *config.Config           { return a.config }
func (a *App) DB() *sql.DB                      { return a.db }
func (a *App) WsHub() *websocket.Hub            { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager     { return a.jobManager }
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.dispatcher }
func (a *App) Version() string                  { return a.version }

// SetDispatcher wires in the job dispatcher. It is built after the App
// because the extraction pipeline needs the App's components.
func (a *App) SetDispatcher(d *dispatch.Dispatcher) {
	a.dispatcher = d
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
