package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mkarev/teampulse/internal/domain"
)

var baseNow = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeActionStore struct {
	mu      sync.Mutex
	actions map[string]domain.Action
}

func newFakeActionStore() *fakeActionStore {
	return &fakeActionStore{actions: make(map[string]domain.Action)}
}

func (f *fakeActionStore) UpsertAction(_ context.Context, a *domain.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions[a.ID] = *a
	return nil
}

func (f *fakeActionStore) DeleteAction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.actions, id)
	return nil
}

func (f *fakeActionStore) LoadActions(_ context.Context) ([]domain.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Action
	for _, a := range f.actions {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeActionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.actions)
}

func newTestDispatcher(store ActionStore, sender Sender, at time.Time) *Dispatcher {
	d := New(store, zap.NewNop(), sender, time.Second)
	d.now = func() time.Time { return at }
	return d
}

func TestSchedule_RejectsPast(t *testing.T) {
	store := newFakeActionStore()
	d := newTestDispatcher(store, &fakeSender{}, baseNow)

	_, err := d.Schedule(context.Background(), 7, 7, "too late", baseNow.Add(-time.Minute), domain.FreqNone)
	if !errors.Is(err, domain.ErrPastTrigger) {
		t.Fatalf("want ErrPastTrigger, got %v", err)
	}
	if len(d.List(7)) != 0 {
		t.Fatal("rejected action must not enter the cache")
	}
	if store.count() != 0 {
		t.Fatal("rejected action must not be persisted")
	}
}

func TestSchedule_PersistsAndLists(t *testing.T) {
	store := newFakeActionStore()
	d := newTestDispatcher(store, &fakeSender{}, baseNow)

	a, err := d.Schedule(context.Background(), 7, 7, "standup", baseNow.Add(time.Hour), domain.FreqNone)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != "R1" {
		t.Fatalf("want id R1, got %s", a.ID)
	}
	if store.count() != 1 {
		t.Fatalf("want 1 persisted action, got %d", store.count())
	}

	// Second reminder, sooner; List must order soonest first.
	if _, err := d.Schedule(context.Background(), 7, 7, "coffee", baseNow.Add(10*time.Minute), domain.FreqNone); err != nil {
		t.Fatal(err)
	}
	list := d.List(7)
	if len(list) != 2 {
		t.Fatalf("want 2 actions, got %d", len(list))
	}
	if list[0].Payload != "coffee" || list[1].Payload != "standup" {
		t.Fatalf("wrong order: %s, %s", list[0].Payload, list[1].Payload)
	}

	// Another owner sees nothing.
	if got := d.List(8); len(got) != 0 {
		t.Fatalf("owner isolation broken: %d", len(got))
	}
}

func TestTick_OneShotFiresOnceAndRetires(t *testing.T) {
	store := newFakeActionStore()
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, baseNow)

	if _, err := d.Schedule(context.Background(), 7, 42, "ship it", baseNow.Add(time.Minute), domain.FreqNone); err != nil {
		t.Fatal(err)
	}

	// Not yet due.
	d.tick(context.Background())
	if len(sender.messages()) != 0 {
		t.Fatal("fired before trigger time")
	}

	// Advance past the trigger.
	d.now = func() time.Time { return baseNow.Add(61 * time.Second) }
	d.tick(context.Background())
	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(msgs))
	}
	if msgs[0] != "⏰ Reminder: ship it" {
		t.Fatalf("unexpected text: %s", msgs[0])
	}
	if len(d.List(7)) != 0 {
		t.Fatal("one-shot must leave the cache after firing")
	}
	if store.count() != 0 {
		t.Fatal("one-shot must leave the store after firing")
	}

	// A second tick past the trigger delivers nothing more.
	d.tick(context.Background())
	if len(sender.messages()) != 1 {
		t.Fatal("one-shot fired twice")
	}
}

func TestTick_RecurringReschedulesSameID(t *testing.T) {
	store := newFakeActionStore()
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, baseNow)

	at := baseNow.Add(time.Minute)
	a, err := d.Schedule(context.Background(), 7, 42, "daily sync", at, domain.FreqDaily)
	if err != nil {
		t.Fatal(err)
	}

	fireAt := at.Add(time.Second)
	d.now = func() time.Time { return fireAt }
	d.tick(context.Background())

	if len(sender.messages()) != 1 {
		t.Fatalf("want 1 delivery, got %d", len(sender.messages()))
	}
	list := d.List(7)
	if len(list) != 1 {
		t.Fatalf("recurring must stay scheduled, got %d", len(list))
	}
	if list[0].ID != a.ID {
		t.Fatalf("reschedule must keep the id: want %s, got %s", a.ID, list[0].ID)
	}
	want := at.Add(24 * time.Hour)
	if !list[0].TriggerAt.Equal(want) {
		t.Fatalf("next trigger: want %v, got %v", want, list[0].TriggerAt)
	}
	if store.count() != 1 {
		t.Fatal("rescheduled action must remain persisted")
	}
}

func TestTick_MultipleDueAllFire(t *testing.T) {
	store := newFakeActionStore()
	sender := &fakeSender{}
	d := newTestDispatcher(store, sender, baseNow)

	if _, err := d.Schedule(context.Background(), 7, 42, "one", baseNow.Add(time.Minute), domain.FreqNone); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Schedule(context.Background(), 8, 43, "two", baseNow.Add(2*time.Minute), domain.FreqNone); err != nil {
		t.Fatal(err)
	}

	d.now = func() time.Time { return baseNow.Add(5 * time.Minute) }
	d.tick(context.Background())
	if got := len(sender.messages()); got != 2 {
		t.Fatalf("want 2 deliveries, got %d", got)
	}
}

func TestTick_DeliveryFailureStillRetires(t *testing.T) {
	store := newFakeActionStore()
	sender := &fakeSender{fail: true}
	d := newTestDispatcher(store, sender, baseNow)

	if _, err := d.Schedule(context.Background(), 7, 42, "gone chat", baseNow.Add(time.Minute), domain.FreqNone); err != nil {
		t.Fatal(err)
	}

	d.now = func() time.Time { return baseNow.Add(2 * time.Minute) }
	d.tick(context.Background())

	if len(d.List(7)) != 0 || store.count() != 0 {
		t.Fatal("undeliverable one-shot must still be retired")
	}
}

func TestCancel(t *testing.T) {
	store := newFakeActionStore()
	d := newTestDispatcher(store, &fakeSender{}, baseNow)

	a, err := d.Schedule(context.Background(), 7, 42, "meeting", baseNow.Add(time.Hour), domain.FreqNone)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Cancel(context.Background(), a.ID, 8); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}
	if _, err := d.Cancel(context.Background(), "R999", 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	// Ids are case-insensitive on input.
	got, err := d.Cancel(context.Background(), "r1", 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Payload != "meeting" {
		t.Fatalf("wrong action cancelled: %s", got.Payload)
	}
	if len(d.List(7)) != 0 || store.count() != 0 {
		t.Fatal("cancel must remove from cache and store")
	}
}

func TestClear(t *testing.T) {
	store := newFakeActionStore()
	d := newTestDispatcher(store, &fakeSender{}, baseNow)

	for i := 0; i < 3; i++ {
		if _, err := d.Schedule(context.Background(), 7, 42, "x", baseNow.Add(time.Hour), domain.FreqNone); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.Schedule(context.Background(), 8, 43, "y", baseNow.Add(time.Hour), domain.FreqNone); err != nil {
		t.Fatal(err)
	}

	if n := d.Clear(context.Background(), 7); n != 3 {
		t.Fatalf("want 3 cleared, got %d", n)
	}
	if len(d.List(8)) != 1 {
		t.Fatal("other owner's actions must survive")
	}
	if store.count() != 1 {
		t.Fatalf("want 1 persisted action left, got %d", store.count())
	}
}

func TestLoad_RehydratesCounter(t *testing.T) {
	store := newFakeActionStore()
	store.actions["R7"] = domain.Action{
		ID: "R7", OwnerID: 7, ChatID: 42, Payload: "old",
		TriggerAt: baseNow.Add(time.Hour),
	}

	d := newTestDispatcher(store, &fakeSender{}, baseNow)
	if err := d.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(d.List(7)) != 1 {
		t.Fatal("persisted action missing after load")
	}

	a, err := d.Schedule(context.Background(), 7, 42, "new", baseNow.Add(time.Hour), domain.FreqNone)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != "R8" {
		t.Fatalf("counter must continue past persisted ids: want R8, got %s", a.ID)
	}
}

func TestDispatcher_NilStoreIsCacheOnly(t *testing.T) {
	d := newTestDispatcher(nil, &fakeSender{}, baseNow)

	if err := d.Load(context.Background()); err != nil {
		t.Fatalf("load without store: %v", err)
	}
	a, err := d.Schedule(context.Background(), 7, 42, "memo", baseNow.Add(time.Hour), domain.FreqNone)
	if err != nil {
		t.Fatalf("schedule without store: %v", err)
	}
	if _, err := d.Cancel(context.Background(), a.ID, 7); err != nil {
		t.Fatalf("cancel without store: %v", err)
	}
}
