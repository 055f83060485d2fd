package realtime

import (
	"context"
	"encoding/json"
)

const (
	EventBidAccepted      = "bid_accepted"
	EventOutbid           = "outbid"
	EventAuctionExtended  = "auction_extended"
	EventAuctionFinalized = "auction_finalized"

	clientJoinAuction  = "join_auction"
	clientLeaveAuction = "leave_auction"
	serverJoined       = "joined"
	serverLeft         = "left"
	serverError        = "error"
)

// Publisher delivers an event to every subscriber of a room.
type Publisher interface {
	Publish(ctx context.Context, room, event string, payload any) error
}

func AuctionRoom(auctionID string) string {
	return "auction:" + auctionID
}

func BidderRoom(auctionID, bidderID string) string {
	return "auction:" + auctionID + ":user:" + bidderID
}

// Message is the frame written to sockets and relayed between instances.
type Message struct {
	Room  string          `json:"room,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type clientMessage struct {
	Event string `json:"event"`
	Data  struct {
		AuctionID string `json:"auctionId"`
	} `json:"data"`
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, room, event string, payload any) error { return nil }
