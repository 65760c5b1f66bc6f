package main

import (
	"context"
	"errors"
	"log/slog"

	"catalogdesk-backend/internal/availability"
	"catalogdesk-backend/internal/sheets"
	"catalogdesk-backend/lib/restyutil"
	"catalogdesk-backend/lib/serviceutil"
	"catalogdesk-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	err := telemetry.SetupFromEnv(ctx, "catalogd")
	if errors.Is(err, telemetry.ErrNotConfigured) {
		slog.WarnContext(ctx, "telemetry.json5 not found, telemetry is disabled")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}
	sheets.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput("<dev_state>/resty_telemetry/sheets"),
	)
	availability.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput("<dev_state>/resty_telemetry/availability"),
	)
}
