package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/api-sage/transfer-ledger/src/internal/domain"
	"github.com/api-sage/transfer-ledger/src/internal/logger"
	"github.com/api-sage/transfer-ledger/src/internal/usecase/service_interfaces"
)

const handleTimeout = 15 * time.Second

// SettlementEvent is delivered by the external settlement system once a
// transfer has actually moved funds (or definitively failed to).
type SettlementEvent struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// SettlementConsumer feeds settlement events into the transfer ledger.
// Redelivery is safe: the ledger rejects transitions on non-PENDING
// transfers instead of re-applying them.
type SettlementConsumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	transfer service_interfaces.TransferService
}

func NewSettlementConsumer(amqpURL, queue string, transfer service_interfaces.TransferService) (*SettlementConsumer, error) {
	conn, err := amqp.Dial(strings.TrimSpace(amqpURL))
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &SettlementConsumer{
		conn:     conn,
		ch:       ch,
		queue:    queue,
		transfer: transfer,
	}, nil
}

func (c *SettlementConsumer) Start() error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for delivery := range msgs {
			if c.handle(delivery.Body) {
				_ = delivery.Ack(false)
			} else {
				_ = delivery.Nack(false, true)
			}
		}
	}()

	return nil
}

// handle returns false only for transient processing failures, which are
// requeued. Malformed events and events for unknown or already-settled
// transfers are acked and dropped.
func (c *SettlementConsumer) handle(body []byte) bool {
	var event SettlementEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Error("settlement consumer malformed event", err, nil)
		return true
	}
	if strings.TrimSpace(event.Reference) == "" {
		logger.Warn("settlement consumer event missing reference", nil)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	var err error
	switch strings.ToUpper(strings.TrimSpace(event.Status)) {
	case "COMPLETED", "SUCCESS", "SUCCESSFUL":
		_, err = c.transfer.ConfirmSettlement(ctx, event.Reference)
	case "FAILED", "FAILURE":
		_, err = c.transfer.FailSettlement(ctx, event.Reference, event.Reason)
	default:
		logger.Warn("settlement consumer ignoring event status", logger.Fields{
			"reference": event.Reference,
			"status":    event.Status,
		})
		return true
	}

	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrTransferNotFound) || errors.Is(err, domain.ErrTransferNotPending) {
		logger.Warn("settlement consumer dropping non-applicable event", logger.Fields{
			"reference": event.Reference,
			"status":    event.Status,
			"cause":     err.Error(),
		})
		return true
	}

	logger.Error("settlement consumer processing failed, requeueing", err, logger.Fields{
		"reference": event.Reference,
	})
	return false
}

func (c *SettlementConsumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
