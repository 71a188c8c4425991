package realtime

import (
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	matchRoomPrefix = "match:"
	userRoomPrefix  = "user:"
)

// MatchRoom возвращает имя комнаты сессии
func MatchRoom(matchID string) string { return matchRoomPrefix + matchID }

// UserRoom возвращает имя личного канала пользователя
func UserRoom(userID uuid.UUID) string { return userRoomPrefix + userID.String() }

// Event отправляется клиентам в виде JSON
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub хранит websocket клиентов по комнатам
type Hub struct {
	rooms  map[string]map[*Client]struct{}
	opened map[string]time.Time // время подключения первого клиента комнаты
	mu     sync.RWMutex
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		opened: make(map[string]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
		h.opened[room] = h.now()
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.rooms[room]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.rooms, room)
			delete(h.opened, room)
		}
	}
}

// Broadcast рассылает событие всем клиентам комнаты. Медленный клиент отключается
func (h *Hub) Broadcast(room string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", event.Type, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		go c.Close()
	}
}

// MatchRooms возвращает идентификаторы сессий, у которых есть слушатели
func (h *Hub) MatchRooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var ids []string
	for room := range h.rooms {
		if strings.HasPrefix(room, matchRoomPrefix) {
			ids = append(ids, strings.TrimPrefix(room, matchRoomPrefix))
		}
	}
	sort.Strings(ids)
	return ids
}

// MatchRoomOpenedAt возвращает время, когда в комнату сессии вошел первый клиент,
// или нулевое время, если слушателей нет
func (h *Hub) MatchRoomOpenedAt(matchID string) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.opened[MatchRoom(matchID)]
}

// Listeners возвращает число клиентов в комнате
func (h *Hub) Listeners(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
