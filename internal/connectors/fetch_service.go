package connectors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"toolcost/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	logger    *zap.Logger
}

type FetchResult struct {
	Fetched   int
	Stored    int
	Unchanged int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *zap.Logger) *FetchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		logger:    logger,
	}
}

// FetchAndStore saves new or changed messages with status "fetched" so the
// processing step picks them up. Messages already stored with the same
// content are left alone.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", label, err)
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, changed, err := s.store.Store(msg)
		if err != nil {
			return result, fmt.Errorf("store %s: %w", msg.MessageID, err)
		}
		if !changed {
			result.Unchanged++
			continue
		}
		result.Stored++
		s.logger.Debug("mail stored",
			zap.String("provider", msg.Provider),
			zap.String("message_id", msg.MessageID),
			zap.String("subject", msg.Subject))
	}
	return result, nil
}
