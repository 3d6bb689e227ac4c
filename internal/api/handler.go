// Package api serves the query endpoint over Fiber.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/efebarandurmaz/codefinder/internal/observability"
	"github.com/efebarandurmaz/codefinder/internal/rag"
)

// RootMessage is returned by GET /.
const RootMessage = "GKE App V0"

// Querier answers a query. A nil answer with a nil error means no response.
type Querier interface {
	Query(ctx context.Context, query string) (*rag.Answer, error)
}

// QueryHandler serves /query/.
type QueryHandler struct {
	querier    Querier
	collection string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewQueryHandler(q Querier, collection string, m *observability.Metrics, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{querier: q, collection: collection, metrics: m, logger: logging.OrDiscard(logger)}
}

// HandleRoot does not touch the store.
func HandleRoot(c *fiber.Ctx) error {
	return c.JSON(RootResponse{Message: RootMessage})
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return ErrBadRequest()
	}
	if fields := req.Validate(); len(fields) > 0 {
		return NewValidationError(fields)
	}

	ctx, span := observability.StartQuerySpan(c.UserContext(), h.collection)
	defer span.End()
	if h.metrics != nil {
		h.metrics.InFlightQueries.Inc()
		defer h.metrics.InFlightQueries.Dec()
	}

	start := time.Now()
	answer, err := h.querier.Query(ctx, *req.Query)
	h.metrics.RecordQuery(time.Since(start), answer != nil, err)
	observability.RecordError(span, err)
	if err != nil {
		return err
	}
	if answer == nil {
		return ErrNoResponse()
	}

	h.logger.Debug("query answered", "no_answer", answer.NoAnswer, "sources", len(answer.Sources))
	return c.JSON(rag.CleanAnswer(answer.Text))
}
