package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hourglass-app/hourglass/internal/errors"
)

// Opener opens the fact store for a set of connection parameters.
type Opener func(ctx context.Context, db DBConfig) (*SQLStore, error)

// Control is the tracking backend. It is safe for concurrent use.
type Control struct {
	mu      sync.RWMutex
	cfg     Config
	store   *SQLStore
	ongoing *Ongoing

	open  Opener
	retry *errors.Policy
	log   *zap.SugaredLogger
}

// Option configures a Control.
type Option func(*Control)

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Control) {
		if log != nil {
			c.log = log
		}
	}
}

// WithOpener replaces the function used to open the fact store.
func WithOpener(open Opener) Option {
	return func(c *Control) {
		c.open = open
	}
}

// WithRetry sets the policy for connecting to database servers. Local
// sqlite files are opened once.
func WithRetry(p *errors.Policy) Option {
	return func(c *Control) {
		c.retry = p
	}
}

// New creates a Control and opens its store.
func New(ctx context.Context, cfg Config, opts ...Option) (*Control, error) {
	c := &Control{
		open:  OpenSQL,
		retry: errors.ConnectPolicy(),
		log:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !Registered(cfg.Store) {
		return nil, errors.NewBuilder(errors.CodeStoreUnavailable, "unknown store backend").
			WithContext("store", cfg.Store).
			Build()
	}

	store, err := c.openStore(ctx, cfg.DB)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreUnavailable, "cannot open fact store", errors.CategorySystem)
	}

	c.cfg = cfg
	c.store = store
	c.ongoing = NewOngoing(cfg.TmpfilePath)
	c.log.Infow("backend online", "store", cfg.Store, "engine", cfg.DB.Engine)
	return c, nil
}

// UpdateConfig re-derives the operating parameters from cfg. The store is
// reopened only when the connection parameters changed; on failure the
// previous configuration stays in effect.
func (c *Control) UpdateConfig(ctx context.Context, cfg Config) error {
	c.mu.RLock()
	same := c.cfg.DB == cfg.DB
	c.mu.RUnlock()

	var store *SQLStore
	if !same {
		var err error
		store, err = c.openStore(ctx, cfg.DB)
		if err != nil {
			c.log.Errorw("backend reconfigure failed", "engine", cfg.DB.Engine, "err", err)
			return errors.Wrap(err, errors.CodeStoreUnavailable, "cannot open fact store", errors.CategorySystem)
		}
	}

	c.mu.Lock()
	old := c.store
	c.cfg = cfg
	c.ongoing = NewOngoing(cfg.TmpfilePath)
	if store != nil {
		c.store = store
	}
	c.mu.Unlock()

	if store != nil && old != nil {
		if err := old.Close(); err != nil {
			c.log.Warnw("closing previous fact store", "err", err)
		}
	}
	c.log.Infow("backend reconfigured", "engine", cfg.DB.Engine, "reopened", !same)
	return nil
}

// Config returns the current operating parameters.
func (c *Control) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// TrackingDay returns the calendar date of the tracking day containing t.
// A tracking day starts at DayStart rather than midnight.
func (c *Control) TrackingDay(t time.Time) time.Time {
	dayStart := c.Config().DayStart
	shifted := t.Add(-dayStart)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, t.Location())
}

// DayBounds returns the [start, end) interval of the tracking day for the
// calendar date day.
func (c *Control) DayBounds(day time.Time) (time.Time, time.Time) {
	dayStart := c.Config().DayStart
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	start := midnight.Add(dayStart)
	return start, start.AddDate(0, 0, 1)
}

// AddFact validates and stores a finished fact.
func (c *Control) AddFact(ctx context.Context, f Fact) error {
	c.mu.RLock()
	minDelta := c.cfg.FactMinDelta
	store := c.store
	c.mu.RUnlock()

	if strings.TrimSpace(f.Activity) == "" {
		return errors.User(errors.CodeFactInvalid, "activity name is empty")
	}
	if !f.End.After(f.Start) {
		return errors.NewBuilder(errors.CodeFactInvalid, "fact ends before it starts").
			WithContext("start", f.Start.Format(time.RFC3339)).
			WithContext("end", f.End.Format(time.RFC3339)).
			Build()
	}
	if f.Duration() < minDelta {
		return errors.NewBuilder(errors.CodeFactTooShort, "fact is shorter than the minimum duration").
			WithContext("duration", f.Duration().String()).
			WithContext("minimum", minDelta.String()).
			Build()
	}

	return store.AddFact(ctx, f)
}

// FactsForDay returns the facts of the tracking day for the calendar date day.
func (c *Control) FactsForDay(ctx context.Context, day time.Time) ([]Fact, error) {
	from, to := c.DayBounds(day)

	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()
	return store.FactsBetween(ctx, from, to)
}

// RecentActivities returns the activities used in the last days days.
func (c *Control) RecentActivities(ctx context.Context, now time.Time, days int) ([]Activity, error) {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()
	return store.Activities(ctx, now.AddDate(0, 0, -days))
}

// Start begins tracking a new fact at now.
func (c *Control) Start(f Fact, now time.Time) error {
	if strings.TrimSpace(f.Activity) == "" {
		return errors.User(errors.CodeFactInvalid, "activity name is empty")
	}
	f.Start = now
	id, err := c.currentOngoing().Start(f)
	if err != nil {
		return err
	}
	c.log.Infow("fact started", "activity", f.Activity, "run", id)
	return nil
}

// Current returns the running fact, if any.
func (c *Control) Current() (Fact, bool, error) {
	return c.currentOngoing().Current()
}

// Stop ends the running fact at now and stores it. The running fact is
// kept if it cannot be stored.
func (c *Control) Stop(ctx context.Context, now time.Time) (Fact, error) {
	ongoing := c.currentOngoing()

	f, ok, err := ongoing.Current()
	if err != nil {
		return Fact{}, err
	}
	if !ok {
		return Fact{}, errors.User(errors.CodeNoOngoingFact, "no fact is running")
	}

	id, err := ongoing.RunID()
	if err != nil {
		return Fact{}, err
	}

	f.End = now
	if err := c.AddFact(ctx, f); err != nil {
		return Fact{}, err
	}
	if err := ongoing.Clear(); err != nil {
		return Fact{}, err
	}
	c.log.Infow("fact stopped", "activity", f.Activity, "run", id, "duration", f.Duration())
	return f, nil
}

// Close releases the fact store.
func (c *Control) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

// openStore opens db, retrying per the policy when db is a server.
func (c *Control) openStore(ctx context.Context, db DBConfig) (*SQLStore, error) {
	policy := c.retry
	if strings.EqualFold(db.Engine, EngineSQLite) {
		policy = errors.NoRetry()
	}

	attempt := 0
	return errors.DoWithResult(ctx, policy, func() (*SQLStore, error) {
		attempt++
		store, err := c.open(ctx, db)
		if err != nil {
			c.log.Warnw("opening fact store failed", "engine", db.Engine, "attempt", attempt, "err", err)
		}
		return store, err
	})
}

func (c *Control) currentOngoing() *Ongoing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ongoing
}
