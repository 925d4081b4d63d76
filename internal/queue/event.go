// Package queue defines the activity payload exchanged over the message
// broker and the consumer that journals it.
package queue

import (
	"time"

	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
)

// ActivityQueueName is the durable queue committed activity is published to.
const ActivityQueueName = "marketplace.activity"

// ActivityMessage is published once per committed marketplace operation.
// Amounts travel as decimal strings; "0" when the operation moved no funds.
type ActivityMessage struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	EventID    uint32 `json:"event_id"`
	Tier       uint32 `json:"tier"`
	Actor      string `json:"actor"`
	Currency   string `json:"currency"`
	Amount     string `json:"amount"`
	Fee        string `json:"fee"`
	Quantity   uint64 `json:"quantity"`
	OccurredAt string `json:"occurred_at"`
}

// NewActivityMessage flattens an activity into its wire form.
func NewActivityMessage(a model.Activity) ActivityMessage {
	m := ActivityMessage{
		ID:         a.ID,
		Kind:       string(a.Kind),
		EventID:    a.EventID,
		Tier:       a.Tier,
		Actor:      a.Actor.Hex(),
		Currency:   a.Currency.String(),
		Amount:     "0",
		Fee:        "0",
		Quantity:   a.Quantity,
		OccurredAt: a.At.UTC().Format(time.RFC3339Nano),
	}
	if a.Amount != nil {
		m.Amount = a.Amount.Dec()
	}
	if a.Fee != nil {
		m.Fee = a.Fee.Dec()
	}
	return m
}

// JournalEntry converts the message into a journal row.
func (m ActivityMessage) JournalEntry() (repository.JournalEntry, error) {
	at, err := time.Parse(time.RFC3339Nano, m.OccurredAt)
	if err != nil {
		return repository.JournalEntry{}, err
	}
	return repository.JournalEntry{
		ID:         m.ID,
		Kind:       m.Kind,
		EventID:    m.EventID,
		Tier:       m.Tier,
		Actor:      m.Actor,
		Currency:   m.Currency,
		Amount:     m.Amount,
		Fee:        m.Fee,
		Quantity:   m.Quantity,
		OccurredAt: at,
	}, nil
}
