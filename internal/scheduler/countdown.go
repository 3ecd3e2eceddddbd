package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

// Countdown is an ephemeral chat-scoped countdown to a fixed instant.
// Countdowns are not persisted and do not survive a restart.
type Countdown struct {
	ID     string
	Name   string
	ChatID int64
	EndAt  time.Time // UTC
}

// Countdowns polls active event countdowns and announces the ones that end.
type Countdowns struct {
	log      *zap.Logger
	sender   Sender
	interval time.Duration
	now      Clock

	mu   sync.Mutex
	byID map[string]*Countdown
	seq  int
}

// NewCountdowns creates the countdown poller.
func NewCountdowns(log *zap.Logger, sender Sender, interval time.Duration) *Countdowns {
	return &Countdowns{
		log:      log,
		sender:   sender,
		interval: interval,
		now:      UTCNow,
		byID:     make(map[string]*Countdown),
	}
}

// Add registers a countdown ending at the given UTC instant.
func (c *Countdowns) Add(name string, chatID int64, endAt time.Time) (*Countdown, error) {
	endAt = endAt.UTC()
	if !endAt.After(c.now()) {
		return nil, domain.ErrPastTrigger
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	cd := &Countdown{
		ID:     fmt.Sprintf("C%d", c.seq),
		Name:   name,
		ChatID: chatID,
		EndAt:  endAt,
	}
	c.byID[cd.ID] = cd
	return cd, nil
}

// List returns the chat's countdowns, soonest first.
func (c *Countdowns) List(chatID int64) []Countdown {
	c.mu.Lock()
	var res []Countdown
	for _, cd := range c.byID {
		if cd.ChatID == chatID {
			res = append(res, *cd)
		}
	}
	c.mu.Unlock()

	sort.Slice(res, func(i, j int) bool { return res[i].EndAt.Before(res[j].EndAt) })
	return res
}

// Remove deletes a countdown by id.
func (c *Countdowns) Remove(id string) bool {
	id = strings.ToUpper(strings.TrimSpace(id))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	return true
}

// Run starts the poll loop until ctx is canceled.
func (c *Countdowns) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("countdown poller stopping")
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Countdowns) tick() {
	now := c.now()

	c.mu.Lock()
	var ended []*Countdown
	for _, cd := range c.byID {
		if !cd.EndAt.After(now) {
			ended = append(ended, cd)
		}
	}
	for _, cd := range ended {
		delete(c.byID, cd.ID)
	}
	c.mu.Unlock()

	for _, cd := range ended {
		text := fmt.Sprintf("⏳ Countdown %q ended!", cd.Name)
		if err := c.sender.SendMessage(cd.ChatID, text); err != nil {
			c.log.Error("countdown announcement failed",
				zap.String("id", cd.ID), zap.Int64("chatID", cd.ChatID), zap.Error(err))
		}
	}
}
