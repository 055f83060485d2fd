package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const sendBuffer = 64

// Relay forwards frames to every instance, this one included.
type Relay interface {
	Send(ctx context.Context, m Message) error
}

// Hub tracks room membership for local sockets.
type Hub struct {
	Relay  Relay
	Logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}
}

type subscriber struct {
	userID string
	send   chan []byte

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{Logger: logger, rooms: map[string]map[*subscriber]struct{}{}}
}

func newSubscriber(userID string) *subscriber {
	return &subscriber{userID: userID, send: make(chan []byte, sendBuffer), rooms: map[string]struct{}{}}
}

func (h *Hub) Publish(ctx context.Context, room, event string, payload any) error {
	if h == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	m := Message{Room: room, Event: event, Data: data}
	if h.Relay != nil {
		if err := h.Relay.Send(ctx, m); err == nil {
			return nil
		} else if h.Logger != nil {
			h.Logger.Warn("realtime: relay send failed, delivering locally", zap.String("room", room), zap.Error(err))
		}
	}
	h.Deliver(m)
	return nil
}

// Deliver fans m out to local members of m.Room. Slow subscribers lose frames
// rather than stall the publisher.
func (h *Hub) Deliver(m Message) {
	frame, err := json.Marshal(m)
	if err != nil {
		return
	}
	h.mu.RLock()
	members := make([]*subscriber, 0, len(h.rooms[m.Room]))
	for s := range h.rooms[m.Room] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		if !s.offer(frame) && h.Logger != nil {
			h.Logger.Debug("realtime: dropped frame for slow subscriber", zap.String("room", m.Room), zap.String("event", m.Event))
		}
	}
}

func (h *Hub) join(s *subscriber, room string) {
	h.mu.Lock()
	if h.rooms == nil {
		h.rooms = map[string]map[*subscriber]struct{}{}
	}
	members := h.rooms[room]
	if members == nil {
		members = map[*subscriber]struct{}{}
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	h.mu.Unlock()

	s.mu.Lock()
	s.rooms[room] = struct{}{}
	s.mu.Unlock()
}

func (h *Hub) leave(s *subscriber, room string) {
	h.mu.Lock()
	if members := h.rooms[room]; members != nil {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	s.mu.Lock()
	delete(s.rooms, room)
	s.mu.Unlock()
}

// joinAuction adds s to the auction room and, for identified users, to their
// private bidder room.
func (h *Hub) joinAuction(s *subscriber, auctionID string) {
	h.join(s, AuctionRoom(auctionID))
	if s.userID != "" {
		h.join(s, BidderRoom(auctionID, s.userID))
	}
}

func (h *Hub) leaveAuction(s *subscriber, auctionID string) {
	h.leave(s, AuctionRoom(auctionID))
	if s.userID != "" {
		h.leave(s, BidderRoom(auctionID, s.userID))
	}
}

func (h *Hub) drop(s *subscriber) {
	s.mu.Lock()
	rooms := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()
	for _, r := range rooms {
		h.leave(s, r)
	}
	s.close()
}

// RoomSize reports local membership, mostly for health output and tests.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (s *subscriber) offer(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}
