package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/org/credvault/internal/api"
	"github.com/org/credvault/internal/audit"
	"github.com/org/credvault/internal/source"
	"github.com/org/credvault/internal/store"
	"github.com/org/credvault/internal/vault"
)

type config struct {
	ListenAddr  string `yaml:"listen_addr"`
	TLSCertFile string `yaml:"tls_cert"`
	TLSKeyFile  string `yaml:"tls_key"`
	LogLevel    string `yaml:"log_level"`

	// Source selects where credentials come from: "directory" for the
	// dirserver backend, "sheets" for a spreadsheet read directly.
	Source       string `yaml:"source"`
	DirectoryURL string `yaml:"directory_url"`

	Sheets struct {
		SpreadsheetID string `yaml:"spreadsheet_id"`
		APIKey        string `yaml:"api_key"`
		BaseURL       string `yaml:"base_url"`
	} `yaml:"sheets"`

	AccessLogCapacity int `yaml:"access_log_capacity"`
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfgFile := "config.yaml"
	if v := os.Getenv("CREDVAULT_CONFIG"); v != "" {
		cfgFile = v
	}

	cfg := config{
		ListenAddr: "127.0.0.1:8300",
		LogLevel:   "info",
		Source:     "directory",
	}

	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to parse config")
		}
	} else {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	// Env overrides
	if v := os.Getenv("CREDVAULT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CREDVAULT_DIRECTORY_URL"); v != "" {
		cfg.DirectoryURL = v
	}
	if v := os.Getenv("CREDVAULT_SHEETS_API_KEY"); v != "" {
		cfg.Sheets.APIKey = v
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var src vault.Source
	var auth vault.Authenticator
	switch cfg.Source {
	case "directory":
		if cfg.DirectoryURL == "" {
			log.Fatal().Msg("directory_url must be configured (or CREDVAULT_DIRECTORY_URL env var)")
		}
		client := source.NewDirectoryClient(cfg.DirectoryURL)
		src, auth = client, client
	case "sheets":
		if cfg.Sheets.SpreadsheetID == "" || cfg.Sheets.APIKey == "" {
			log.Fatal().Msg("sheets.spreadsheet_id and sheets.api_key must be configured")
		}
		rows := source.NewSheetsValues(cfg.Sheets.BaseURL, cfg.Sheets.SpreadsheetID, cfg.Sheets.APIKey)
		sheets := source.NewSheetsSource(rows)
		src, auth = sheets, sheets
	default:
		log.Fatal().Str("source", cfg.Source).Msg("unknown source, want directory or sheets")
	}

	accessLog := audit.NewLog(cfg.AccessLogCapacity)
	svc := vault.New(store.NewMemoryStore(), src, auth, accessLog)

	srv := api.NewServer(svc, accessLog, api.Config{
		ListenAddr:  cfg.ListenAddr,
		TLSCertFile: cfg.TLSCertFile,
		TLSKeyFile:  cfg.TLSKeyFile,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Str("source", cfg.Source).Msg("agent started")
	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("agent stopped")
}
