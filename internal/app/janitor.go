package app

import (
	"context"

	"github.com/robfig/cron/v3"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"tabular/internal/sshtunnel"
)

// janitor periodically drops tunnels whose forward died underneath us,
// so the next query dials a fresh one instead of failing on a dead port.
type janitor struct {
	cron *cron.Cron
}

func startJanitor(ctx context.Context, tunnels *sshtunnel.Registry) *janitor {
	c := cron.New()
	c.AddFunc("@every 1m", func() {
		if removed := tunnels.Sweep(); removed > 0 {
			wailsRuntime.LogInfof(ctx, "Swept %d dead tunnel(s)", removed)
			wailsRuntime.EventsEmit(ctx, "tunnels:changed")
		}
	})
	c.Start()
	return &janitor{cron: c}
}

func (j *janitor) stop() {
	j.cron.Stop()
}
