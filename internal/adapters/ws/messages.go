package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"auction-ledger-service/internal/domain/shared"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeUnsubscribe   MessageType = "unsubscribe"
	MessageTypeRegisterUser  MessageType = "register_user"
	MessageTypeRegisterItem  MessageType = "register_item"
	MessageTypePlaceBid      MessageType = "place_bid"
	MessageTypeGetWinningBid MessageType = "get_winning_bid"
	MessageTypeGetItemBids   MessageType = "get_item_bids"
	MessageTypeGetUserItems  MessageType = "get_user_items"
	MessageTypePing          MessageType = "ping"

	// Server to Client message types
	MessageTypeUserRegistered MessageType = "user_registered"
	MessageTypeItemRegistered MessageType = "item_registered"
	MessageTypeBidAccepted    MessageType = "bid_accepted"
	MessageTypeLedgerUpdate   MessageType = "ledger_update"
	MessageTypeError          MessageType = "error"
	MessageTypePong           MessageType = "pong"
)

type ClientMessage struct {
	Type      MessageType            `json:"type"`
	ItemID    *int64                 `json:"item_id,omitempty"`
	UserID    *int64                 `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	ItemID    *int64                 `json:"item_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

func NewErrorMessage(err string, itemID *int64) *ServerMessage {
	return &ServerMessage{
		Type:      MessageTypeError,
		ItemID:    itemID,
		Error:     &err,
		Timestamp: time.Now().Unix(),
	}
}

func (m *ClientMessage) validateItemID() error {
	if m.ItemID == nil || *m.ItemID <= 0 {
		return shared.ErrItemIDRequired
	}
	return nil
}

func (m *ClientMessage) validateUserID() error {
	if m.UserID == nil || *m.UserID <= 0 {
		return shared.ErrUserIDRequired
	}
	return nil
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}

	// Validate required fields
	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}

	return &msg, nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if err := m.validateItemID(); err != nil {
			return err
		}
	case MessageTypePlaceBid:
		if err := m.validateItemID(); err != nil {
			return err
		}
		if err := m.validateUserID(); err != nil {
			return err
		}
		amount, ok := m.Data["amount"].(float64)
		if !ok || amount != float64(int64(amount)) {
			return shared.ErrInvalidAmount
		}
	case MessageTypeGetWinningBid, MessageTypeGetItemBids:
		if err := m.validateItemID(); err != nil {
			return err
		}
	case MessageTypeGetUserItems:
		if err := m.validateUserID(); err != nil {
			return err
		}
	case MessageTypeRegisterUser, MessageTypeRegisterItem:

	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}

	return nil
}

// Amount returns the bid amount carried in the message data. Validate must
// have accepted the message first.
func (m *ClientMessage) Amount() int64 {
	amount, _ := m.Data["amount"].(float64)
	return int64(amount)
}
