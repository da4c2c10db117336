package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/db/controller/dirsettings"
	"github.com/vobridge/vobridge/internal/syncer"
)

// nightlyInterval is the pause between scheduled bulk sync runs.
const nightlyInterval = 24 * time.Hour

// nightly runs the scheduled bulk sync. Whether a tick actually syncs
// is decided at tick time from the static config and the stored
// settings, so operators can toggle it without a restart.
type nightly struct {
	d    *Daemon
	stop chan struct{}
	done chan struct{}
}

func newNightly(d *Daemon) *nightly {
	return &nightly{
		d:    d,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (n *nightly) start() {
	go n.loop()
}

func (n *nightly) loop() {
	defer close(n.done)

	ticker := time.NewTicker(nightlyInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", nightlyInterval).Msg("nightly sync scheduler started")

	for {
		select {
		case <-ticker.C:
			n.tick()
		case <-n.stop:
			return
		}
	}
}

func (n *nightly) tick() {
	if !n.enabled() {
		log.Debug().Msg("nightly sync disabled, skipping tick")
		return
	}

	summary, err := n.d.SyncAll(context.Background())
	if errors.Is(err, syncer.ErrRunInProgress) {
		log.Warn().Msg("nightly sync skipped, another run is in flight")
		return
	}

	if err != nil {
		log.Error().Err(err).Msg("nightly sync failed")
		return
	}

	log.Info().
		Str("run_id", summary.RunID).
		Int("total", summary.Total).
		Int("synced", summary.Synced).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("nightly sync finished")
}

func (n *nightly) enabled() bool {
	if n.d.cfg.Directory.NightlySync {
		return true
	}

	var stored dirsettings.Settings
	if err := stored.Load(n.d.db); err != nil {
		log.Warn().Err(err).Msg("failed to load stored settings for nightly sync")
		return false
	}

	return stored.EnableNightlySync
}

func (n *nightly) stopAndWait() {
	close(n.stop)
	<-n.done
}
