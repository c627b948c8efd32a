package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 20

// Recorder writes and reads Exchanges.
type Recorder struct {
	db    *gorm.DB
	clock clockwork.Clock
}

// RecorderOpts holds parameters for creating a Recorder.
type RecorderOpts struct {
	DB    *gorm.DB        // required
	Clock clockwork.Clock // defaults to the real clock
}

// NewRecorder creates a Recorder.
func NewRecorder(opts RecorderOpts) (*Recorder, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("transcript: db is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{db: opts.DB, clock: clock}, nil
}

// Record stores ex, stamping CreatedAt if it is unset.
func (r *Recorder) Record(ctx context.Context, ex Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = r.clock.Now()
	}
	if err := r.db.WithContext(ctx).Create(&ex).Error; err != nil {
		return fmt.Errorf("transcript: record: %w", err)
	}
	return nil
}

// Query filters Recent.
type Query struct {
	ChannelID string // empty for every channel
	Outcome   string // empty for every outcome
	Limit     int    // defaults to DefaultLimit
}

// Recent returns the newest exchanges matching q, newest first.
func (r *Recorder) Recent(ctx context.Context, q Query) ([]Exchange, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	tx := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if q.ChannelID != "" {
		tx = tx.Where("channel_id = ?", q.ChannelID)
	}
	if q.Outcome != "" {
		tx = tx.Where("outcome = ?", q.Outcome)
	}
	var out []Exchange
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("transcript: recent: %w", err)
	}
	return out, nil
}

// Prune deletes exchanges older than retention and returns how many went.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.clock.Now().Add(-retention)
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Exchange{})
	if res.Error != nil {
		return 0, fmt.Errorf("transcript: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}
