package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

var (
	ErrNotFound = errors.New("reminder not found")
	ErrNotOwner = errors.New("reminder belongs to another user")
)

// Clock returns the current time in UTC; injectable for tests.
type Clock func() time.Time

// UTCNow is the default Clock.
func UTCNow() time.Time { return time.Now().UTC() }

// Sender is the minimal interface the schedulers need to deliver a text
// message. telegram.Router implements it (method: SendMessage). The
// implementation is expected to bound each send with its own timeout so one
// slow destination cannot stall a whole tick.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// ActionStore is the slice of the repository the dispatcher persists through.
type ActionStore interface {
	UpsertAction(ctx context.Context, a *domain.Action) error
	DeleteAction(ctx context.Context, id string) error
	LoadActions(ctx context.Context) ([]domain.Action, error)
}

// Dispatcher owns the in-memory cache of scheduled actions and the poll loop
// that fires them. The cache is mutated only through Dispatcher methods; the
// store is the durable source of truth rehydrated via Load at startup.
//
// Delivery is at-most-once: a due action is sent exactly one attempt per due
// interval, and is retired (one-shot) or rescheduled (recurring) whether or
// not the attempt succeeded.
type Dispatcher struct {
	store    ActionStore // nil when persistence is unavailable
	log      *zap.Logger
	sender   Sender
	interval time.Duration
	now      Clock

	mu      sync.Mutex
	actions map[string]*domain.Action
	counter int
}

// New creates a Dispatcher polling at the given interval.
func New(store ActionStore, log *zap.Logger, sender Sender, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		store:    store,
		log:      log,
		sender:   sender,
		interval: interval,
		now:      UTCNow,
		actions:  make(map[string]*domain.Action),
	}
}

// Load rebuilds the cache from the store and rehydrates the id counter from
// the highest persisted numeric suffix. Call once before Run.
func (d *Dispatcher) Load(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	acts, err := d.store.LoadActions(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = make(map[string]*domain.Action, len(acts))
	for i := range acts {
		a := acts[i]
		d.actions[a.ID] = &a
		if n, ok := idSuffix(a.ID); ok && n > d.counter {
			d.counter = n
		}
	}
	d.log.Info("scheduled actions loaded", zap.Int("count", len(acts)))
	return nil
}

// Schedule validates and registers a new action, persisting it before
// returning. freq is FreqNone for one-shot reminders.
func (d *Dispatcher) Schedule(ctx context.Context, ownerID, chatID int64, payload string, at time.Time, freq domain.Frequency) (*domain.Action, error) {
	now := d.now()
	a := &domain.Action{
		OwnerID:   ownerID,
		ChatID:    chatID,
		Payload:   payload,
		TriggerAt: at.UTC(),
		Recurring: freq != domain.FreqNone,
		Frequency: freq,
		CreatedAt: now,
	}
	if err := a.Validate(now); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.counter++
	a.ID = fmt.Sprintf("R%d", d.counter)
	d.actions[a.ID] = a
	d.mu.Unlock()

	d.persist(ctx, a)
	return a, nil
}

// Cancel removes an action from cache and store. Only the owner may cancel.
func (d *Dispatcher) Cancel(ctx context.Context, id string, ownerID int64) (*domain.Action, error) {
	id = strings.ToUpper(strings.TrimSpace(id))

	d.mu.Lock()
	a, ok := d.actions[id]
	if !ok {
		d.mu.Unlock()
		return nil, ErrNotFound
	}
	if a.OwnerID != ownerID {
		d.mu.Unlock()
		return nil, ErrNotOwner
	}
	delete(d.actions, id)
	d.mu.Unlock()

	d.unpersist(ctx, id)
	return a, nil
}

// List returns the owner's pending actions, soonest first.
func (d *Dispatcher) List(ownerID int64) []domain.Action {
	d.mu.Lock()
	var res []domain.Action
	for _, a := range d.actions {
		if a.OwnerID == ownerID {
			res = append(res, *a)
		}
	}
	d.mu.Unlock()

	sort.Slice(res, func(i, j int) bool { return res[i].TriggerAt.Before(res[j].TriggerAt) })
	return res
}

// Clear removes all of the owner's actions and returns how many were removed.
func (d *Dispatcher) Clear(ctx context.Context, ownerID int64) int {
	d.mu.Lock()
	var ids []string
	for id, a := range d.actions {
		if a.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(d.actions, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.unpersist(ctx, id)
	}
	return len(ids)
}

// Run starts the poll loop until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick performs one scheduling cycle: snapshot due actions, deliver, then
// retire or reschedule each one. A failing entry never stops the cycle.
func (d *Dispatcher) tick(ctx context.Context) {
	now := d.now()

	d.mu.Lock()
	var due []*domain.Action
	for _, a := range d.actions {
		if !a.TriggerAt.After(now) {
			due = append(due, a)
		}
	}
	d.mu.Unlock()

	for _, a := range due {
		if err := d.sender.SendMessage(a.ChatID, "⏰ Reminder: "+a.Payload); err != nil {
			// At-most-once: the destination may be gone for good, so the
			// entry is still retired or rescheduled below.
			d.log.Error("reminder delivery failed",
				zap.String("id", a.ID), zap.Int64("chatID", a.ChatID), zap.Error(err))
		}

		if !a.Recurring {
			d.mu.Lock()
			delete(d.actions, a.ID)
			d.mu.Unlock()
			d.unpersist(ctx, a.ID)
			continue
		}

		next := a.NextTrigger(now)
		d.mu.Lock()
		_, live := d.actions[a.ID] // cancelled while firing?
		if live {
			a.TriggerAt = next
		}
		d.mu.Unlock()
		if live {
			d.persist(ctx, a)
		}
	}
}

// persist writes through to the store. A store failure degrades to
// cache-only operation: it is logged and the command still succeeds.
func (d *Dispatcher) persist(ctx context.Context, a *domain.Action) {
	if d.store == nil {
		return
	}
	if err := d.store.UpsertAction(ctx, a); err != nil {
		d.log.Warn("action not persisted, continuing in-memory",
			zap.String("id", a.ID), zap.Error(err))
	}
}

func (d *Dispatcher) unpersist(ctx context.Context, id string) {
	if d.store == nil {
		return
	}
	if err := d.store.DeleteAction(ctx, id); err != nil {
		d.log.Warn("action not deleted from store",
			zap.String("id", id), zap.Error(err))
	}
}

// idSuffix extracts N from ids of the form "R<N>".
func idSuffix(id string) (int, bool) {
	if len(id) < 2 || id[0] != 'R' {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
