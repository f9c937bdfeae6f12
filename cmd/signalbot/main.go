package main

import (
	"context"
	"log"

	"signalbot/internal/app"
	"signalbot/internal/config"
	"signalbot/internal/obslog"
)

const logFile = "signalbot.log"

// App.Run installs its own SIGINT/SIGTERM handling around worker shutdown,
// so main only needs to hand it a root context.
func main() {
	cfg := config.Load()
	obslog.Setup(logFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)

	log.Println("signalbot starting")

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("CRITICAL: failed to initialize: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	log.Println("signalbot stopped")
}
