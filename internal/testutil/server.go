// A shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"context"
	"testing"

	"github.com/docrlabs/docr-go/internal/api"
	"github.com/docrlabs/docr-go/internal/config"
	"github.com/docrlabs/docr-go/internal/core"
	"github.com/docrlabs/docr-go/internal/dispatch"
	"github.com/docrlabs/docr-go/internal/extract"
	"github.com/docrlabs/docr-go/internal/ocr"
	"github.com/docrlabs/docr-go/internal/ocr/mockocr"
	"github.com/docrlabs/docr-go/internal/store"
	"github.com/docrlabs/docr-go/internal/websocket"
)

// SetupTestApp builds a core.App against an in-memory database and temporary
// storage directories.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	database := SetupTestDB(t)

	cfg := &config.Config{
		BatchSize:      8,
		RenderDPI:      72,
		QueueCapacity:  10,
		RetentionHours: 72,
	}
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.OutputDir = t.TempDir()

	hub := websocket.NewHub()
	go hub.Run()

	return core.NewApp(cfg, database, hub, "test")
}

// SetupTestServer initializes a full core.App with a running dispatcher and an
// api.Server for integration testing. Recognition uses the mock engine and a
// stub page renderer, so no sidecar or native PDF library is required.
func SetupTestServer(t *testing.T, pages int) (*api.Server, *core.App) {
	t.Helper()
	app := SetupTestApp(t)

	pipe := extract.NewPipeline(app.Config(), store.New(app.DB()), app.WsHub(), &StubRenderer{Pages: pages})
	dispatcher := dispatch.New(app.Config().QueueCapacity, func() (ocr.Engine, error) {
		return mockocr.New(), nil
	}, pipe)
	dispatcher.Start()
	t.Cleanup(func() {
		dispatcher.Stop(context.Background())
	})
	app.SetDispatcher(dispatcher)

	return api.NewServer(app), app
}
