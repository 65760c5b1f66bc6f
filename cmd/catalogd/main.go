package main

import (
	"context"
	"flag"
	"time"

	devenv "catalogdesk-backend/dev/env"
	"catalogdesk-backend/internal/apiserver"
	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/lib/configutil"
	configlibsql "catalogdesk-backend/lib/configutil/libsql"
	"catalogdesk-backend/lib/serviceutil"
	"catalogdesk-backend/lib/telemetry"
	"catalogdesk-backend/lib/timezone"

	"golang.org/x/text/language"
)

type Config struct {
	Port              int                 `json:"port"`
	DataDir           string              `json:"data_dir"`
	AccessToken       string              `json:"access_token"`
	Collation         string              `json:"collation"`
	Timezone          string              `json:"timezone"`
	PageSize          int                 `json:"page_size"`
	SessionTtlMinutes int                 `json:"session_ttl_minutes"`
	Journal           configlibsql.Struct `json:"journal"`
	Sheets            SheetsConfig        `json:"sheets"`
	Availability      AvailabilityConfig  `json:"availability"`
}

var defaultConfig = Config{
	Port:              8080,
	DataDir:           "<dev_state>/data",
	Collation:         "ru",
	PageSize:          50,
	SessionTtlMinutes: 12 * 60,
	Journal:           configlibsql.Struct{File: "<dev_state>/catalogd.db"},
	Availability: AvailabilityConfig{
		TimeoutSeconds:    30,
		NativeConcurrency: 10,
	},
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "catalogd.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)
	defer telemetry.Shutdown(context.Background())

	cfg, err := configutil.ReadWithDefaults(*configPath, defaultConfig)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	err = timezone.Use(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("load time zone", err)
	}
	lang, err := language.Parse(cfg.Collation)
	if err != nil {
		serviceutil.Fatal("parse collation", err)
	}
	dataDir, err := devenv.ResolvePath(cfg.DataDir)
	if err != nil {
		serviceutil.Fatal("resolve data dir", err)
	}

	store := rowstore.New(dataDir, rowstore.Options{})

	exporter, err := InitSheets(ctx, cfg.Journal, cfg.Sheets)
	if err != nil {
		serviceutil.Fatal("init sheets", err)
	}
	manager := InitAvailability(cfg.Availability, store)

	server := apiserver.New(store, exporter, manager, apiserver.Options{
		AccessToken: cfg.AccessToken,
		SessionTTL:  time.Duration(cfg.SessionTtlMinutes) * time.Minute,
		PageSize:    cfg.PageSize,
		Language:    lang,
	})
	serviceutil.StartHttpServer(ctx, cfg.Port, server)
}
