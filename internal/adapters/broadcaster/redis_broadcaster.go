package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"auction-ledger-service/internal/ports/outbound"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroadcaster implements the broadcaster interface using Redis pub/sub.
// Each item gets its own channel; a client keeps one pubsub connection no
// matter how many items it watches.
type RedisBroadcaster struct {
	client         *redis.Client
	subscribers    map[string]chan outbound.Event // clientID -> local channel
	pubsubs        map[string]*redis.PubSub       // clientID -> pubsub instance
	clientsToItems map[string]map[int64]bool      // clientID -> itemID -> subscribed
	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	logger         zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	broadcaster := &RedisBroadcaster{
		client:         params.RedisClient,
		subscribers:    make(map[string]chan outbound.Event),
		pubsubs:        make(map[string]*redis.PubSub),
		clientsToItems: make(map[string]map[int64]bool),
		ctx:            ctx,
		cancel:         cancel,
		logger:         params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}

	return broadcaster
}

func channelName(itemID int64) string {
	return "item:" + strconv.FormatInt(itemID, 10)
}

// Subscribe subscribes a client to events for a specific item
func (r *RedisBroadcaster) Subscribe(ctx context.Context, itemID int64, clientID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check if client is already subscribed to this item
	if r.clientsToItems[clientID] != nil && r.clientsToItems[clientID][itemID] {
		r.logger.Info().
			Str("client_id", clientID).
			Int64("item_id", itemID).
			Msg("Client already subscribed to item")
		return nil
	}

	// Store the event channel if this is the first subscription
	if r.subscribers[clientID] == nil {
		r.subscribers[clientID] = eventChan
	}

	if r.clientsToItems[clientID] == nil {
		r.clientsToItems[clientID] = make(map[int64]bool)
	}
	r.clientsToItems[clientID][itemID] = true

	// Get or create pubsub connection for this client
	var pubsub *redis.PubSub
	if existingPubsub, exists := r.pubsubs[clientID]; exists {
		pubsub = existingPubsub
	} else {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[clientID] = pubsub

		// Start goroutine to listen for Redis messages and forward to local channel
		go r.listenForRedisMessages(pubsub, clientID, eventChan)
	}

	// Subscribe to the specific item channel
	if err := pubsub.Subscribe(ctx, channelName(itemID)); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Int64("item_id", itemID).Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("client_id", clientID).
		Int64("item_id", itemID).
		Msg("Client subscribed to item via Redis")
	return nil
}

// Unsubscribe unsubscribes a client from events for a specific item
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, itemID int64, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Remove item tracking
	if clientItems, exists := r.clientsToItems[clientID]; exists {
		delete(clientItems, itemID)

		// If no more items, clean up the client entry
		if len(clientItems) == 0 {
			delete(r.clientsToItems, clientID)

			// Forget the local channel. The websocket handler created it and
			// remains its only closer; closing it here would race a handler
			// that still receives from it.
			delete(r.subscribers, clientID)

			// Close Redis pubsub connection
			if pubsub, exists := r.pubsubs[clientID]; exists {
				if err := pubsub.Close(); err != nil {
					r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
				}
				delete(r.pubsubs, clientID)
			}
		} else {
			// Unsubscribe from the specific item channel
			if pubsub, exists := r.pubsubs[clientID]; exists {
				if err := pubsub.Unsubscribe(ctx, channelName(itemID)); err != nil {
					r.logger.Error().Err(err).Str("client_id", clientID).Int64("item_id", itemID).Msg("Error unsubscribing from Redis channel")
				}
			}
		}
	}

	r.logger.Info().
		Str("client_id", clientID).
		Int64("item_id", itemID).
		Msg("Client unsubscribed from item")
	return nil
}

// Publish publishes an event to all subscribers of an item via Redis
func (r *RedisBroadcaster) Publish(ctx context.Context, itemID int64, event outbound.Event) error {
	channel := channelName(itemID)
	r.logger.Info().Str("channel_name", channel).Msg("Publishing event to Redis")

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Publish to Redis
	result := r.client.Publish(ctx, channel, eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	subscriberCount := result.Val()
	r.logger.Info().
		Str("event_type", string(event.Type)).
		Int64("item_id", itemID).
		Int64("subscriber_count", subscriberCount).
		Msg("Published event to item")

	return nil
}

func (r *RedisBroadcaster) GetSubscribers(ctx context.Context, itemID int64) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subscribers []string
	for clientID, items := range r.clientsToItems {
		if items[itemID] {
			subscribers = append(subscribers, clientID)
		}
	}

	return subscribers, nil
}

func (r *RedisBroadcaster) GetEventChannel(clientID string) <-chan outbound.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if eventChan, exists := r.subscribers[clientID]; exists {
		return eventChan
	}

	return nil
}

// listenForRedisMessages listens for Redis messages and forwards them to the local channel
func (r *RedisBroadcaster) listenForRedisMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Redis message listener panic for client")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal Redis message for client")
				continue
			}

			select {
			case localChan <- event:
			default:
				r.logger.Warn().Str("client_id", clientID).Msg("Local channel full for client, dropping event")
			}

		case <-r.ctx.Done():
			r.logger.Info().Str("client_id", clientID).Msg("Redis broadcaster context cancelled for client")
			return
		}
	}
}

func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Channels stay open; their owning handlers close them on client
	// disconnect.
	for clientID := range r.subscribers {
		delete(r.subscribers, clientID)
	}

	// Close all pubsub connections
	for clientID, pubsub := range r.pubsubs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}

	return r.client.Close()
}

func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, itemID int64, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientItems, exists := r.clientsToItems[clientID]
	if !exists {
		return false
	}

	return clientItems[itemID]
}
