package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	defaultReadLimit = 32 << 10
	writeTimeout     = 5 * time.Second
)

type ServeOptions struct {
	ReadLimit      int64
	OriginPatterns []string
}

// Serve upgrades the request and runs the socket until either side closes.
// userID may be empty for anonymous watchers; they only get auction rooms.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, opts ServeOptions) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
	if err != nil {
		return err
	}
	limit := opts.ReadLimit
	if limit <= 0 {
		limit = defaultReadLimit
	}
	conn.SetReadLimit(limit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := newSubscriber(strings.TrimSpace(userID))
	defer h.drop(s)

	go h.writeLoop(ctx, cancel, conn, s)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		h.handleClientMessage(s, data)
	}
}

func (h *Hub) handleClientMessage(s *subscriber, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(s, serverError, map[string]any{"message": "invalid message"})
		return
	}
	auctionID := strings.TrimSpace(msg.Data.AuctionID)
	switch msg.Event {
	case clientJoinAuction:
		if auctionID == "" {
			h.reply(s, serverError, map[string]any{"message": "auctionId is required"})
			return
		}
		h.joinAuction(s, auctionID)
		h.reply(s, serverJoined, map[string]any{"auctionId": auctionID})
	case clientLeaveAuction:
		if auctionID == "" {
			return
		}
		h.leaveAuction(s, auctionID)
		h.reply(s, serverLeft, map[string]any{"auctionId": auctionID})
	default:
		h.reply(s, serverError, map[string]any{"message": "unknown event"})
	}
}

func (h *Hub) reply(s *subscriber, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return
	}
	s.offer(frame)
}

func (h *Hub) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, s *subscriber) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server closing")
			return
		case frame, ok := <-s.send:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, frame)
			wcancel()
			if err != nil {
				if h.Logger != nil {
					h.Logger.Debug("realtime: write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
