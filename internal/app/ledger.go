package app

import (
	"context"
	"errors"
	"time"

	"auction-ledger-service/internal/domain/bid"
	"auction-ledger-service/internal/domain/shared"
	"auction-ledger-service/internal/ports/inbound"
	"auction-ledger-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// LedgerService implements the auction ledger use cases. It only packages
// outcomes: rejection reasons from the registry and ledger are returned to
// the caller untranslated.
type LedgerService struct {
	registry    outbound.IdentityRegistry
	ledger      outbound.BidLedger
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
}

type LedgerServiceParams struct {
	Registry    outbound.IdentityRegistry
	Ledger      outbound.BidLedger
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(params LedgerServiceParams) *LedgerService {
	return &LedgerService{
		registry:    params.Registry,
		ledger:      params.Ledger,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "ledger_service").Logger(),
	}
}

// RegisterUser registers a new user
func (s *LedgerService) RegisterUser(ctx context.Context) (shared.User, error) {
	user, err := s.registry.RegisterUser(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to register user")
		return shared.User{}, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("User registered")
	return user, nil
}

// RegisterItem registers a new item
func (s *LedgerService) RegisterItem(ctx context.Context) (shared.Item, error) {
	item, err := s.registry.RegisterItem(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to register item")
		return shared.Item{}, err
	}

	s.logger.Info().Int64("item_id", item.ID).Msg("Item registered")
	return item, nil
}

// SubmitBid submits a bid to the ledger and broadcasts it on acceptance
func (s *LedgerService) SubmitBid(ctx context.Context, req inbound.SubmitBidRequest) (bid.Bid, error) {
	s.logger.Info().
		Int64("item_id", req.ItemID).
		Int64("user_id", req.UserID).
		Int64("amount", req.Amount).
		Msg("Attempting to submit bid")

	newBid := bid.Bid{
		ItemID: req.ItemID,
		UserID: req.UserID,
		Amount: req.Amount,
	}

	if err := s.ledger.Accept(ctx, newBid); err != nil {
		var tooLow *shared.BidTooLowError
		switch {
		case errors.As(err, &tooLow):
			s.logger.Warn().
				Int64("item_id", req.ItemID).
				Int64("amount", req.Amount).
				Int64("minimum_allowed", tooLow.MinimumAllowed).
				Msg("Bid amount too low")
		case errors.Is(err, shared.ErrUnknownItem), errors.Is(err, shared.ErrUnknownUser):
			s.logger.Warn().
				Int64("item_id", req.ItemID).
				Int64("user_id", req.UserID).
				Err(err).
				Msg("Bid references unknown entity")
		default:
			s.logger.Error().Err(err).Int64("item_id", req.ItemID).Msg("Failed to record bid")
		}
		return bid.Bid{}, err
	}

	// Broadcast the accepted bid
	if s.broadcaster != nil {
		event := outbound.Event{
			Type:   outbound.EventTypeBidAccepted,
			ItemID: newBid.ItemID,
			Data: map[string]interface{}{
				"item_id": newBid.ItemID,
				"user_id": newBid.UserID,
				"amount":  newBid.Amount,
			},
			Timestamp: time.Now().Unix(),
		}

		if err := s.broadcaster.Publish(ctx, newBid.ItemID, event); err != nil {
			// Log error but don't fail the accepted bid
			s.logger.Error().Err(err).Int64("item_id", newBid.ItemID).Msg("Failed to broadcast bid event")
		}
	}

	s.logger.Info().
		Int64("item_id", newBid.ItemID).
		Int64("user_id", newBid.UserID).
		Int64("amount", newBid.Amount).
		Msg("Bid accepted")

	return newBid, nil
}

// WinningBid returns the current winning bid for an item
func (s *LedgerService) WinningBid(ctx context.Context, itemID int64) (*bid.Bid, error) {
	return s.ledger.WinningBid(ctx, itemID)
}

// AllBidsForItem returns the bid history for an item
func (s *LedgerService) AllBidsForItem(ctx context.Context, itemID int64) ([]bid.Bid, error) {
	return s.ledger.AllBidsForItem(ctx, itemID)
}

// AllItemsForUser returns the distinct items a user has bid on
func (s *LedgerService) AllItemsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.ledger.AllItemsForUser(ctx, userID)
}
