package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/sheetbot/core/bootstrap"
	"github.com/m3rciful/sheetbot/core/logger"
	tg "github.com/m3rciful/sheetbot/core/telegram"
	tghelpers "github.com/m3rciful/sheetbot/core/telegram/helpers"
	"github.com/m3rciful/sheetbot/core/telegram/middleware"
	"github.com/m3rciful/sheetbot/core/telegram/router"
	tgsender "github.com/m3rciful/sheetbot/core/telegram/sender"
	"github.com/m3rciful/sheetbot/internal/bot"
	"github.com/m3rciful/sheetbot/internal/dialogue"
	"github.com/m3rciful/sheetbot/internal/sheets"
	"github.com/m3rciful/sheetbot/internal/snapshot"
	"github.com/m3rciful/sheetbot/internal/transfer"
	"github.com/m3rciful/sheetbot/internal/xlsx"

	tele "gopkg.in/telebot.v4"
)

// App holds the wired bot.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	authorize dialogue.Authorizer
	registry  *tg.Registry
	handlers  *bot.Handlers
}

// Deps are the external collaborators of the bot.
type Deps struct {
	Source sheets.Source
	// Snapshots defaults to an in-memory store.
	Snapshots snapshot.Store
	// DB is closed when the bot stops.
	DB *sqlx.DB
}

// Bootstrap initializes logging and storage, connects to Google Sheets and
// wires the bot.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	deps := Deps{DB: res.DB}
	if res.DB != nil {
		deps.Snapshots = snapshot.NewPostgresStore(res.DB)
	}

	src, err := sheets.NewGoogleSource(ctx, sheets.GoogleOptions{
		CredentialsFile: cfg.Sheets.CredentialsFile,
		Timeout:         cfg.Sheets.Timeout(),
	})
	if err != nil {
		closeDB(res.DB)
		return nil, err
	}
	deps.Source = src

	a, err := New(cfg, deps)
	if err != nil {
		closeDB(res.DB)
		return nil, err
	}
	return a, nil
}

// New wires the transfer engine, dialogue controller and Telegram handlers.
func New(cfg *Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if deps.Source == nil {
		return nil, errors.New("app: nil sheets source")
	}
	store := deps.Snapshots
	storeKind := "postgres"
	if store == nil {
		store = snapshot.NewMemoryStore()
		storeKind = "memory"
	}

	engine, err := transfer.NewEngine(transfer.Options{
		Source:    deps.Source,
		Encoder:   xlsx.NewEncoder(),
		Snapshots: store,
	})
	if err != nil {
		return nil, fmt.Errorf("app: transfer engine: %w", err)
	}

	authorize := dialogue.SingleIdentity(cfg.Telegram.AdminID)
	ctrl, err := dialogue.NewController(dialogue.Options{
		Authorize:              authorize,
		Transfers:              engine,
		MinSpreadsheetIDLength: cfg.Dialogue.MinSpreadsheetIDLength,
	})
	if err != nil {
		return nil, fmt.Errorf("app: dialogue: %w", err)
	}

	handlers := bot.New(ctrl, store)
	reg := tg.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	logger.Info(context.Background(), "app", "app.wired",
		slog.String("status", "ok"),
		slog.String("snapshots", storeKind),
		slog.Int("commands", len(reg.Commands())),
	)

	return &App{
		cfg:       cfg,
		db:        deps.DB,
		authorize: authorize,
		registry:  reg,
		handlers:  handlers,
	}, nil
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *tg.Registry {
	return a.registry
}

// TelegramRunOptions assembles middlewares and routes for the core runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := &a.cfg.Config

	routes := router.Build(a.registry, a.handlers, router.Options{
		Admin: middleware.AdminOptions{
			AdminID: core.Telegram.AdminID,
			Allow:   middleware.AccessPolicy(a.authorize),
			OnReject: func(c tele.Context) error {
				return tghelpers.SendText(c, "Access denied.")
			},
		},
	})

	return tg.RunOptions{
		Config:   core,
		Registry: a.registry,
		// One worker keeps replies to a chat in the order they were produced.
		DispatcherOptions: tgsender.Options{Workers: 1},
		Middlewares:       tg.DefaultMiddlewares(core, nil),
		Routes:            routes,
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func closeDB(db *sqlx.DB) {
	if db != nil {
		_ = db.Close()
	}
}
