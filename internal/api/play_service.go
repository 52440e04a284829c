package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tunecache/internal/jobs"
	"tunecache/internal/logging"
	"tunecache/internal/orchestrator"
	"tunecache/internal/services"
	"tunecache/internal/ytdlp"
)

// Enqueuer runs the cache-or-produce decision for a content id.
type Enqueuer interface {
	ResolveOrEnqueue(ctx context.Context, contentID string, meta jobs.Metadata) (orchestrator.Outcome, error)
}

// PlayService turns a user query into a play response.
type PlayService struct {
	resolver orchestrator.Resolver
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewPlayService wires the resolver and orchestrator behind /play.
func NewPlayService(resolver orchestrator.Resolver, enqueuer Enqueuer, logger *slog.Logger) *PlayService {
	return &PlayService{
		resolver: resolver,
		enqueuer: enqueuer,
		logger:   logging.NewComponentLogger(logger, "play"),
	}
}

// Play resolves query and returns the response together with its HTTP status.
func (s *PlayService) Play(ctx context.Context, query string) (PlayResponse, int) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrorPlay(MessageNoQuery), http.StatusBadRequest
	}
	logger := logging.WithContext(ctx, s.logger)

	identity, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		var resErr *ytdlp.ResolutionError
		if errors.As(err, &resErr) || errors.Is(err, services.ErrNotFound) {
			logger.Info("query could not be resolved",
				logging.String("query", query),
				logging.Error(err),
				logging.String(logging.FieldEventType, "resolution_failed"),
			)
			return ErrorPlay(MessageNotFound + ": " + err.Error()), http.StatusNotFound
		}
		logging.ErrorWithContext(logger, "resolver failed unexpectedly", "resolver_error",
			logging.String("query", query),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		)
		return ErrorPlay(MessageUnexpected), http.StatusInternalServerError
	}

	ctx = services.WithContentID(ctx, identity.ContentID)
	outcome, err := s.enqueuer.ResolveOrEnqueue(ctx, identity.ContentID, identity.Metadata)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "play request failed", "play_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
		)
		return ErrorPlay(err.Error()), http.StatusInternalServerError
	}
	return FromOutcome(outcome, identity), http.StatusOK
}
