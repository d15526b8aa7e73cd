package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"paycore/internal/models"
)

// Outcome tells the consumer how to settle a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Discard drops a message that can never be stored.
	Discard
	// Requeue returns the message to the queue for another attempt.
	Requeue
)

// Handler turns broker messages into audit records.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Handle decodes body and stores it.
func (h *Handler) Handle(ctx context.Context, body []byte) (Outcome, error) {
	var event models.TransferEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return Discard, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.EventID == "" || event.TransferID == "" {
		return Discard, fmt.Errorf("event without id")
	}
	if err := h.repo.Save(ctx, FromEvent(event)); err != nil {
		return Requeue, err
	}
	return Ack, nil
}
