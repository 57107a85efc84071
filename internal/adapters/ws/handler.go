package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"auction-ledger-service/internal/domain/shared"
	"auction-ledger-service/internal/ports/inbound"
	"auction-ledger-service/internal/ports/outbound"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients       map[string]*WsClient // clientID -> Client
	clientsMu     sync.RWMutex
	eventChannels map[string]chan outbound.Event // clientID -> local event channel
	channelsMu    sync.RWMutex
	upgrader      websocket.Upgrader
	ledgerService inbound.LedgerService
	broadcaster   outbound.Broadcaster
	logger        zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader      websocket.Upgrader
	LedgerService inbound.LedgerService
	Broadcaster   outbound.Broadcaster
	Logger        zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:       make(map[string]*WsClient),
		eventChannels: make(map[string]chan outbound.Event),
		upgrader:      params.Upgrader,
		ledgerService: params.LedgerService,
		broadcaster:   params.Broadcaster,
		logger:        params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP connection to WebSocket
	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	// Create new client
	client := NewClient(WsClientParams{
		Conn:    conn,
		Handler: handler,
		Logger:  handler.logger,
	})

	// Register client
	handler.registerClient(client)

	// Create local event channel for this client
	handler.createEventChannel(client.id)

	// Start client message handling
	client.Start()

	// Start listening for broadcast events for this client
	go handler.listenForClientEvents(client)

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Msg("WebSocket client connected")
}

// createEventChannel creates a local event channel for a client
func (handler *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		return eventChan
	}

	eventChan := make(chan outbound.Event, 100)
	handler.eventChannels[clientID] = eventChan

	return eventChan
}

func (handler *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	handler.channelsMu.RLock()
	defer handler.channelsMu.RUnlock()

	return handler.eventChannels[clientID]
}

func (handler *WsHandler) removeEventChannel(clientID string) {
	handler.channelsMu.Lock()
	defer handler.channelsMu.Unlock()

	if eventChan, exists := handler.eventChannels[clientID]; exists {
		close(eventChan)
		delete(handler.eventChannels, clientID)
	}
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()

	// Remove client from registry
	delete(handler.clients, client.id)

	// Stop the client
	client.Stop()

	// Remove local event channel
	handler.removeEventChannel(client.id)

	handler.logger.Info().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the WebSocket client
func (handler *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client - this should not happen")
		return
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				handler.logger.Debug().Str("client_id", client.id).Msg("Event channel closed, stopping event listener")
				return
			}
			wsMessage := handler.convertEventToMessage(event)

			if err := client.Send(wsMessage); err != nil {
				handler.logger.Error().
					Err(err).Str("client_id", client.id).Msg("Failed to send event to WebSocket client")
			}

		case <-client.ctx.Done():
			handler.logger.Debug().Str("client_id", client.id).Msg("Client disconnected, stopping event listener")
			return
		}
	}
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		return handler.handleUnsubscribe(client, msg)

	case MessageTypeRegisterUser:
		return handler.handleRegisterUser(client)

	case MessageTypeRegisterItem:
		return handler.handleRegisterItem(client)

	case MessageTypePlaceBid:
		return handler.handlePlaceBid(client, msg)

	case MessageTypeGetWinningBid:
		return handler.handleGetWinningBid(client, msg)

	case MessageTypeGetItemBids:
		return handler.handleGetItemBids(client, msg)

	case MessageTypeGetUserItems:
		return handler.handleGetUserItems(client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

func (handler *WsHandler) convertEventToMessage(event outbound.Event) *ServerMessage {
	itemID := event.ItemID
	switch event.Type {
	case outbound.EventTypeBidAccepted:
		return &ServerMessage{
			Type:      MessageTypeBidAccepted,
			ItemID:    &itemID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	default:
		return &ServerMessage{
			Type:      MessageTypeLedgerUpdate,
			ItemID:    &itemID,
			Data:      event.Data,
			Timestamp: event.Timestamp,
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

func (handler *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	eventChan := handler.getEventChannel(client.id)
	if eventChan == nil {
		handler.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return shared.ErrClientEventChannelNotFound
	}

	// Subscribe to broadcaster with the local event channel
	if err := handler.broadcaster.Subscribe(ctx, *msg.ItemID, client.id, eventChan); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Int64("item_id", *msg.ItemID).Msg("Failed to subscribe to item")
		return err
	}

	response := NewServerMessage(MessageTypeLedgerUpdate)
	response.ItemID = msg.ItemID
	response.Data["status"] = "subscribed"

	handler.logger.Info().Str("client_id", client.id).Int64("item_id", *msg.ItemID).Msg("Client subscribed to item")
	return client.Send(response)
}

// handleUnsubscribe handles unsubscription from item events
func (handler *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	// Unsubscribe from broadcaster
	if err := handler.broadcaster.Unsubscribe(ctx, *msg.ItemID, client.id); err != nil {
		return err
	}

	// Send confirmation
	response := NewServerMessage(MessageTypeLedgerUpdate)
	response.ItemID = msg.ItemID
	response.Data["status"] = "unsubscribed"

	handler.logger.Info().Str("client_id", client.id).Int64("item_id", *msg.ItemID).Msg("Client unsubscribed from item")
	return client.Send(response)
}

// handleRegisterUser handles user registration
func (handler *WsHandler) handleRegisterUser(client *WsClient) error {
	ctx := context.Background()

	user, err := handler.ledgerService.RegisterUser(ctx)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeUserRegistered)
	response.Data["user_id"] = user.ID

	handler.logger.Info().Str("client_id", client.id).Int64("user_id", user.ID).Msg("User registered")
	return client.Send(response)
}

// handleRegisterItem handles item registration
func (handler *WsHandler) handleRegisterItem(client *WsClient) error {
	ctx := context.Background()

	item, err := handler.ledgerService.RegisterItem(ctx)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeItemRegistered)
	response.Data["item_id"] = item.ID

	handler.logger.Info().Str("client_id", client.id).Int64("item_id", item.ID).Msg("Item registered")
	return client.Send(response)
}

// handlePlaceBid handles bid submission
func (handler *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	bidRequest := inbound.SubmitBidRequest{
		ItemID: *msg.ItemID,
		UserID: *msg.UserID,
		Amount: msg.Amount(),
	}

	// Submit bid through application service
	acceptedBid, err := handler.ledgerService.SubmitBid(ctx, bidRequest)
	if err != nil {
		// Send rejection back to client; minimum_allowed tells the bidder
		// what would have succeeded at decision time
		errorMsg := NewErrorMessage(err.Error(), msg.ItemID)
		var tooLow *shared.BidTooLowError
		if errors.As(err, &tooLow) {
			errorMsg.Data = map[string]interface{}{
				"minimum_allowed": tooLow.MinimumAllowed,
			}
		}
		return client.Send(errorMsg)
	}

	handler.logger.Info().
		Str("client_id", client.id).
		Int64("item_id", acceptedBid.ItemID).
		Int64("user_id", acceptedBid.UserID).
		Int64("amount", acceptedBid.Amount).
		Msg("Bid accepted")

	return nil
}

// handleGetWinningBid handles winning bid queries
func (handler *WsHandler) handleGetWinningBid(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	winning, err := handler.ledgerService.WinningBid(ctx, *msg.ItemID)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), msg.ItemID)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeLedgerUpdate)
	response.ItemID = msg.ItemID
	if winning != nil {
		response.Data["winning_bid"] = winning
	} else {
		response.Data["winning_bid"] = nil
	}

	return client.Send(response)
}

// handleGetItemBids handles bid history queries
func (handler *WsHandler) handleGetItemBids(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	bids, err := handler.ledgerService.AllBidsForItem(ctx, *msg.ItemID)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), msg.ItemID)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeLedgerUpdate)
	response.ItemID = msg.ItemID
	response.Data["bids"] = bids
	response.Data["count"] = len(bids)

	return client.Send(response)
}

// handleGetUserItems handles queries for the items a user has bid on
func (handler *WsHandler) handleGetUserItems(client *WsClient, msg *ClientMessage) error {
	ctx := context.Background()

	items, err := handler.ledgerService.AllItemsForUser(ctx, *msg.UserID)
	if err != nil {
		errorMsg := NewErrorMessage(err.Error(), nil)
		return client.Send(errorMsg)
	}

	response := NewServerMessage(MessageTypeLedgerUpdate)
	response.Data["user_id"] = *msg.UserID
	response.Data["items"] = items
	response.Data["count"] = len(items)

	return client.Send(response)
}
