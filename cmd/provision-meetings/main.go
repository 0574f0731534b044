package main

import (
	"context"
	"encoding/csv"
	"log"
	"os"

	"github.com/openretreat/office-sync/internal/client"
	"github.com/openretreat/office-sync/internal/service"
	"github.com/openretreat/office-sync/pkg/config"
	"github.com/openretreat/office-sync/pkg/logger"
)

// provision-meetings creates one recurring meeting per listed account
// user and prints the rows for the meetings sheet as CSV on stdout.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	zoom := client.NewZoomClient(cfg.Zoom, logr)
	meetings := service.NewMeetingsService(cfg.Zoom, zoom, logr)

	rows, err := meetings.Provision(context.Background())
	if err != nil {
		logr.Sugar().Fatalw("provisioning meetings failed", "error", err)
	}

	writer := csv.NewWriter(os.Stdout)
	if err := writer.Write([]string{"email", "meetingId", "joinUrl", "hostKey"}); err != nil {
		logr.Sugar().Fatalw("writing csv failed", "error", err)
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.Email, row.MeetingID, row.JoinURL, row.HostKey}); err != nil {
			logr.Sugar().Fatalw("writing csv failed", "error", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		logr.Sugar().Fatalw("writing csv failed", "error", err)
	}

	logr.Sugar().Infow("meetings provisioned", "rows", len(rows))
}
