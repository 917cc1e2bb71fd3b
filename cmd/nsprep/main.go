package main

import (
	"context"
	"log/slog"
	"time"

	"nsdotgo/cmd/nsprep/commands"
	"nsdotgo/lib/telemetry"
	"nsdotgo/lib/util/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext(context.Background())

	telemetry.InitSlog(false)
	if _, err := telemetry.SetupFromEnv(ctx, "nsprep"); err != nil {
		slog.Debug("telemetry disabled", "err", err)
	} else {
		telemetry.InstrumentPerfStats(ctx, 15*time.Second)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	commands.ExecuteContext(ctx)
}
