package jobs

import (
	"context"
	"log"
	"time"

	"sahay/internal/models"
	"sahay/pkg/realtime"
)

// RoomLister возвращает сессии, у которых есть подключенные клиенты, и время
// подключения первого из них
type RoomLister interface {
	MatchRooms() []string
	MatchRoomOpenedAt(matchID string) time.Time
}

// MessageSource читает сообщения комнаты новее водяной отметки
type MessageSource interface {
	RoomMessagesSince(matchID string, since time.Time) ([]models.Message, error)
}

// Broadcaster рассылает событие комнате
type Broadcaster interface {
	Broadcast(room string, event realtime.Event)
}

// MessagePoller хранит водяную отметку для каждой комнаты и рассылает только новые сообщения
type MessagePoller struct {
	rooms      RoomLister
	messages   MessageSource
	out        Broadcaster
	watermarks map[string]time.Time
	now        func() time.Time
}

func NewMessagePoller(rooms RoomLister, messages MessageSource, out Broadcaster) *MessagePoller {
	return &MessagePoller{
		rooms:      rooms,
		messages:   messages,
		out:        out,
		watermarks: make(map[string]time.Time),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PollOnce выполняет один проход и возвращает число разосланных сообщений.
// Новая комната начинает с момента подключения: более раннюю историю клиент получает по HTTP
func (p *MessagePoller) PollOnce() int {
	active := make(map[string]struct{})
	sent := 0

	for _, matchID := range p.rooms.MatchRooms() {
		active[matchID] = struct{}{}
		since, ok := p.watermarks[matchID]
		if !ok {
			since = p.rooms.MatchRoomOpenedAt(matchID)
			if since.IsZero() {
				since = p.now()
			}
			p.watermarks[matchID] = since
		}

		messages, err := p.messages.RoomMessagesSince(matchID, since)
		if err != nil {
			log.Printf("message poller: room %s: %v", matchID, err)
			continue
		}
		for _, message := range messages {
			p.out.Broadcast(realtime.MatchRoom(matchID), realtime.Event{Type: "message", Data: message})
			if message.CreatedAt.After(since) {
				since = message.CreatedAt
			}
			sent++
		}
		p.watermarks[matchID] = since
	}

	// Комнаты без слушателей забываем
	for matchID := range p.watermarks {
		if _, ok := active[matchID]; !ok {
			delete(p.watermarks, matchID)
		}
	}
	return sent
}

// StartMessagePoller запускает периодический опрос до отмены ctx
func StartMessagePoller(ctx context.Context, interval time.Duration, poller *MessagePoller) {
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poller.PollOnce()
			}
		}
	}()
}
