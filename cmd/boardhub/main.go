package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/lqviet/boardhub/internal/app"
	"github.com/lqviet/boardhub/internal/channel"
	"github.com/lqviet/boardhub/internal/credential"
	"github.com/lqviet/boardhub/internal/lifecycle"
	"github.com/lqviet/boardhub/internal/logging"
	"github.com/lqviet/boardhub/internal/model"
	"github.com/lqviet/boardhub/internal/notify"
	"github.com/lqviet/boardhub/internal/push"
	"github.com/lqviet/boardhub/internal/rest"
	"github.com/lqviet/boardhub/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "boardhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file next to the config.
	logPath := filepath.Join(filepath.Dir(configPath), "boardhub.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log := logging.New(cfg.LogLevel, logFile)

	token, err := credential.GetToken()
	if err != nil {
		log.Warn("keyring unavailable", "error", err)
	}
	if !model.TokenWellFormed(token) {
		token, err = firstRunSetup(cfg, configPath)
		if err != nil {
			return err
		}
	}

	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = model.DefaultDatabasePath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	restClient := rest.NewClient(cfg.Server.URL+"/api", func() string {
		return token
	})

	socketURL := cfg.Server.SocketURL
	if socketURL == "" {
		socketURL = cfg.Server.URL + "/ws"
	}
	registry := channel.NewRegistry(
		channel.WebSocketDialer(socketURL),
		channel.ConfigFrom(cfg.Realtime),
		log,
	)

	sync := notify.New(restClient, db, log)
	defer sync.Close()

	prefs, err := db.GetPreferences(context.Background())
	if err != nil {
		log.Warn("loading stored preferences", "error", err)
	}
	for k, v := range cfg.Realtime.Preferences {
		if _, ok := prefs[k]; !ok {
			if prefs == nil {
				prefs = make(map[string]bool)
			}
			prefs[k] = v
		}
	}

	signal := model.AuthSignal{Token: token, Preferences: prefs}

	updates := make(chan tea.Msg, 64)

	minInterval := time.Duration(cfg.Push.MinIntervalSec) * time.Second
	bridge := push.New(app.NewAlerter(updates), minInterval, func() bool {
		return cfg.Push.Enabled && signal.RealtimeEnabled()
	}, log)
	sync.OnNew(func(n model.Notification) {
		bridge.OnNewNotification(n, sync.Stats().Unread)
	})

	events := make(chan lifecycle.Event, 16)
	watcher := lifecycle.NewWatcher(registry, sync, events, log)
	wsConn := registry.Connection(channel.NamespaceWorkspace)
	watcher.BindWorkspaceChannel(wsConn)
	wsConn.OnStateChange(func(status channel.Status) {
		if status.State == channel.StateConnected {
			// A deliberate disconnect drops the workspace handlers too;
			// rebinding replaces them rather than stacking duplicates.
			watcher.BindWorkspaceChannel(wsConn)
		}
	})
	watcher.Start()
	defer watcher.Stop()

	for _, ns := range append(append([]string{}, channel.DefaultNamespaces...), channel.NamespaceSystem) {
		registry.Connection(ns).OnStateChange(func(status channel.Status) {
			app.NotifyConnState(updates, status)
		})
	}

	notifConn := registry.Connection(channel.NamespaceNotifications)
	sync.Attach(notifConn)
	notifConn.OnStateChange(func(status channel.Status) {
		if status.State == channel.StateConnected {
			// A deliberate disconnect drops event handlers, so re-attach
			// before asking for the replay of whatever was missed.
			sync.Attach(notifConn)
			sync.RequestRecent(50)
		}
	})

	if err := sync.LoadPersisted(context.Background()); err != nil {
		log.Warn("loading persisted notifications", "error", err)
	}

	events <- lifecycle.AuthChanged{Signal: signal}

	// Seed the feed over REST; channel traffic takes over from here.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sync.Refresh(ctx); err != nil {
			log.Warn("initial snapshot failed", "error", err)
		}
	}()

	reconnect := registry.Reconnect

	p := tea.NewProgram(
		app.New(sync, reconnect, updates),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}

	registry.Shutdown()
	return nil
}

// firstRunSetup prompts for the server URL and session token, stores the
// token in the system keyring, and writes the config file.
func firstRunSetup(cfg *model.AppConfig, configPath string) (string, error) {
	serverURL := cfg.Server.URL
	var token string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Base URL of your BoardHub server").
				Value(&serverURL),
			huh.NewInput().
				Title("Session token").
				Description("Paste the token from Settings > API Access").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if !model.TokenWellFormed(s) {
						return fmt.Errorf("token must have three dot-separated segments")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("setup cancelled: %w", err)
	}

	if err := credential.SetToken(token); err != nil {
		return "", err
	}
	cfg.Server.URL = serverURL
	if err := model.SaveConfig(configPath, cfg); err != nil {
		return "", err
	}
	return token, nil
}
