package syncer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vobridge/vobridge/internal/db/models"
	"github.com/vobridge/vobridge/internal/directory"
)

// ErrRunInProgress is returned when a bulk run is already in flight.
// Web trigger and nightly cron share one instance, two uncoordinated
// runs over the same rows are not allowed.
var ErrRunInProgress = errors.New("bulk sync already running")

// Summary is the report of one bulk run.
type Summary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Total      int       `json:"total"`
	Synced     int       `json:"synced"`
	Deleted    int       `json:"deleted"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Results    []Result  `json:"results"`
}

// Roster is the slice of the directory client the discovery helper
// needs.
type Roster interface {
	GetMembers(ctx context.Context) ([]directory.RosterEntry, error)
	GetMember(ctx context.Context, externalID string) (*directory.Member, error)
}

// BulkStore is the slice of the identity store the orchestrator needs.
type BulkStore interface {
	All() ([]models.Identity, error)
	UpsertSyncMetadata(uid, voUserID, voUsername, voGroupIDs string, syncedAt time.Time) error
}

// Recorder persists the outcome of a bulk run. Nil recorders are fine.
type Recorder interface {
	Record(summary Summary) error
}

// Bulk runs the sync engine over every eligible identity row.
type Bulk struct {
	engine   *Engine
	store    BulkStore
	roster   Roster
	recorder Recorder
	running  atomic.Bool
	now      func() time.Time
}

// NewBulk creates a bulk orchestrator.
func NewBulk(engine *Engine, store BulkStore, roster Roster, recorder Recorder) *Bulk {
	return &Bulk{
		engine:   engine,
		store:    store,
		roster:   roster,
		recorder: recorder,
		now:      time.Now,
	}
}

// Running reports whether a bulk run is currently in flight.
func (b *Bulk) Running() bool {
	return b.running.Load()
}

// SyncAll syncs every unmarked identity row that has an external id.
// Marked duplicate rows and rows that never logged in under the new
// scheme are skipped. One row's failure never aborts the run.
func (b *Bulk) SyncAll(ctx context.Context) (*Summary, error) {
	if !b.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer b.running.Store(false)

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: b.now(),
	}

	logger := log.With().Str("run_id", summary.RunID).Logger()
	logger.Info().Msg("bulk sync started")

	rows, err := b.store.All()
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		summary.Total++

		if row.IsMarked() || row.VOUserID == "" {
			summary.Skipped++
			continue
		}

		result := b.engine.SyncOne(ctx, row.UID, row.VOUserID)
		summary.Results = append(summary.Results, result)

		switch result.Outcome {
		case Success:
			summary.Synced++
		case SyncedDeleted:
			summary.Synced++
			summary.Deleted++
		case SkippedNoLogin:
			summary.Skipped++
		default:
			summary.Failed++
			logger.Warn().
				Err(result.Err).
				Str("uid", row.UID).
				Str("outcome", result.Outcome.String()).
				Msg("user not synced")
		}
	}

	summary.FinishedAt = b.now()

	logger.Info().
		Int("total", summary.Total).
		Int("synced", summary.Synced).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("bulk sync finished")

	if b.recorder != nil {
		if err := b.recorder.Record(*summary); err != nil {
			logger.Warn().Err(err).Msg("failed to persist run status")
		}
	}

	return summary, nil
}

// DiscoverExternalIDs backfills directory member ids for usernames
// that predate the id-based sync scheme. The full roster is fetched
// once and probed in order of name similarity to the targets, so
// likely matches are tried first; probing stops as soon as every
// target is matched. The ranking is a search-order heuristic only.
func (b *Bulk) DiscoverExternalIDs(ctx context.Context, usernames []string) (map[string]string, error) {
	if len(usernames) == 0 {
		return map[string]string{}, nil
	}

	roster, err := b.roster.GetMembers(ctx)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]string, len(usernames))
	for _, username := range usernames {
		if username != "" {
			pending[strings.ToLower(username)] = username
		}
	}

	found := make(map[string]string)

	for _, entry := range rankRoster(roster, usernames) {
		if len(pending) == 0 {
			break
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		member, err := b.roster.GetMember(ctx, entry.ID)
		if err != nil {
			log.Warn().Err(err).Str("member_id", entry.ID).Msg("roster probe failed")
			continue
		}

		username, ok := pending[strings.ToLower(member.Login)]
		if !ok {
			continue
		}

		found[username] = entry.ID
		delete(pending, strings.ToLower(member.Login))

		err = b.store.UpsertSyncMetadata(username, entry.ID, member.Login, member.GroupIDs, b.now())
		if err != nil {
			log.Warn().Err(err).Str("uid", username).Msg("failed to persist discovered id")
		}
	}

	return found, nil
}

// rankRoster orders roster entries by descending similarity to the
// target usernames, with the original roster order as tie-breaker.
func rankRoster(roster []directory.RosterEntry, usernames []string) []directory.RosterEntry {
	type scored struct {
		entry directory.RosterEntry
		score int
		index int
	}

	ranked := make([]scored, len(roster))
	for i, entry := range roster {
		best := 0
		for _, username := range usernames {
			if s := similarity(entry.Name, username); s > best {
				best = s
			}
		}
		ranked[i] = scored{entry: entry, score: best, index: i}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index < ranked[j].index
	})

	out := make([]directory.RosterEntry, len(ranked))
	for i, r := range ranked {
		out[i] = r.entry
	}

	return out
}

// similarity scores how well a roster display name matches a login
// username: shared tokens count double, a substring hit counts once.
func similarity(name, username string) int {
	name = strings.ToLower(name)
	username = strings.ToLower(username)

	if name == "" || username == "" {
		return 0
	}

	score := 0
	for _, token := range strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '-' || r == '_'
	}) {
		if token == "" {
			continue
		}
		if strings.Contains(username, token) {
			score += 2
		}
	}

	if strings.Contains(strings.ReplaceAll(name, " ", ""), username) {
		score++
	}

	return score
}
