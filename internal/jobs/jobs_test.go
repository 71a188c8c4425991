package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"sahay/internal/models"
	"sahay/pkg/realtime"
)

type fakeRooms struct {
	rooms  []string
	opened map[string]time.Time
}

func (f *fakeRooms) MatchRooms() []string { return f.rooms }

func (f *fakeRooms) MatchRoomOpenedAt(matchID string) time.Time { return f.opened[matchID] }

type fakeMessages struct {
	byRoom map[string][]models.Message
	calls  int
}

func (f *fakeMessages) RoomMessagesSince(matchID string, since time.Time) ([]models.Message, error) {
	f.calls++
	var out []models.Message
	for _, m := range f.byRoom[matchID] {
		if m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

type recordedEvent struct {
	room  string
	event realtime.Event
}

type fakeBroadcaster struct{ events []recordedEvent }

func (f *fakeBroadcaster) Broadcast(room string, event realtime.Event) {
	f.events = append(f.events, recordedEvent{room: room, event: event})
}

func TestMessagePollerBroadcastsOnlyNewMessages(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rooms := &fakeRooms{rooms: []string{"m1"}}
	messages := &fakeMessages{byRoom: map[string][]models.Message{
		"m1": {{Message: "old", CreatedAt: start.Add(-time.Minute)}},
	}}
	out := &fakeBroadcaster{}

	poller := NewMessagePoller(rooms, messages, out)
	poller.now = func() time.Time { return start }

	// Без времени подключения комната начинает с текущего момента
	if sent := poller.PollOnce(); sent != 0 {
		t.Fatalf("first poll sent %d messages, want 0", sent)
	}

	messages.byRoom["m1"] = append(messages.byRoom["m1"],
		models.Message{Message: "hi", CreatedAt: start.Add(time.Second)},
		models.Message{Message: "there", CreatedAt: start.Add(2 * time.Second)},
	)
	if sent := poller.PollOnce(); sent != 2 {
		t.Fatalf("second poll sent %d messages, want 2", sent)
	}
	if sent := poller.PollOnce(); sent != 0 {
		t.Fatalf("repeated poll sent %d messages, want 0", sent)
	}

	if len(out.events) != 2 {
		t.Fatalf("got %d events, want 2", len(out.events))
	}
	for _, e := range out.events {
		if e.room != realtime.MatchRoom("m1") || e.event.Type != "message" {
			t.Fatalf("unexpected event %+v", e)
		}
	}
	if got := out.events[1].event.Data.(models.Message).Message; got != "there" {
		t.Fatalf("events out of order, last = %q", got)
	}
}

func TestMessagePollerPushesMessagesSentBeforeFirstTick(t *testing.T) {
	joined := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rooms := &fakeRooms{rooms: []string{"m1"}, opened: map[string]time.Time{"m1": joined}}
	messages := &fakeMessages{byRoom: map[string][]models.Message{
		"m1": {
			{Message: "history", CreatedAt: joined.Add(-time.Second)},
			{Message: "just after join", CreatedAt: joined.Add(500 * time.Millisecond)},
		},
	}}
	out := &fakeBroadcaster{}

	poller := NewMessagePoller(rooms, messages, out)
	poller.now = func() time.Time { return joined.Add(time.Second) }

	if sent := poller.PollOnce(); sent != 1 {
		t.Fatalf("first poll sent %d messages, want 1", sent)
	}
	if got := out.events[0].event.Data.(models.Message).Message; got != "just after join" {
		t.Fatalf("pushed %q, want the message sent after joining", got)
	}
	if sent := poller.PollOnce(); sent != 0 {
		t.Fatalf("repeated poll sent %d messages, want 0", sent)
	}
}

func TestMessagePollerForgetsIdleRooms(t *testing.T) {
	rooms := &fakeRooms{rooms: []string{"m1", "m2"}}
	poller := NewMessagePoller(rooms, &fakeMessages{}, &fakeBroadcaster{})

	poller.PollOnce()
	if len(poller.watermarks) != 2 {
		t.Fatalf("watermarks = %d, want 2", len(poller.watermarks))
	}

	rooms.rooms = []string{"m2"}
	poller.PollOnce()
	if _, ok := poller.watermarks["m1"]; ok {
		t.Fatal("watermark for idle room was kept")
	}
	if _, ok := poller.watermarks["m2"]; !ok {
		t.Fatal("watermark for active room was dropped")
	}
}

type fakeExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	done  chan struct{}
}

func (f *fakeExpirer) ExpireStaleProposals(olderThan time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, olderThan)
	if len(f.calls) == 1 {
		close(f.done)
	}
	return 1, nil
}

func TestProposalExpiryJobRunsOnTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expirer := &fakeExpirer{done: make(chan struct{})}
	before := time.Now().UTC()
	StartProposalExpiryJob(ctx, time.Hour, 10*time.Millisecond, expirer)

	select {
	case <-expirer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expiry job did not run")
	}

	expirer.mu.Lock()
	defer expirer.mu.Unlock()
	cutoff := expirer.calls[0]
	if cutoff.After(before.Add(-time.Hour).Add(time.Second)) || cutoff.Before(before.Add(-time.Hour).Add(-time.Second)) {
		t.Fatalf("cutoff %v is not one hour before %v", cutoff, before)
	}
}

func TestProposalExpiryJobDisabledWithoutTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expirer := &fakeExpirer{done: make(chan struct{})}
	StartProposalExpiryJob(ctx, 0, time.Millisecond, expirer)
	time.Sleep(30 * time.Millisecond)

	expirer.mu.Lock()
	defer expirer.mu.Unlock()
	if len(expirer.calls) != 0 {
		t.Fatalf("disabled job ran %d times", len(expirer.calls))
	}
}
