package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fmaia/digesto/app/database"
	"github.com/fmaia/digesto/app/digest"
	"github.com/fmaia/digesto/app/sources"
	"github.com/fmaia/digesto/app/transport"
)

// SendDigestTask builds and delivers a digest to one recipient on demand,
// ignoring frequency and delivery hour. Triggered through the API.
type SendDigestTask struct {
	Task
	recipientRepo database.RecipientRepository
	deliveryRepo  database.DeliveryRepository
	registry      *sources.Registry
	engine        *digest.Engine
	sender        transport.Sender
	maxItems      int
}

func NewSendDigestTask(recipientID string, recipientRepo database.RecipientRepository,
	deliveryRepo database.DeliveryRepository, registry *sources.Registry,
	engine *digest.Engine, sender transport.Sender, maxItems int) *SendDigestTask {
	return &SendDigestTask{
		Task:          NewTask(TaskTypeSendDigest, recipientID),
		recipientRepo: recipientRepo,
		deliveryRepo:  deliveryRepo,
		registry:      registry,
		engine:        engine,
		sender:        sender,
		maxItems:      maxItems,
	}
}

func (t *SendDigestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	pref, err := t.recipientRepo.Get(t.Subject)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if pref == nil {
		return fmt.Errorf("recipient %s not found", t.Subject)
	}

	pref.Normalize(t.registry, t.maxItems)

	articles := t.engine.SelectForRecipient(ctx, pref)
	message := digest.Format(articles)
	sentAt := time.Now().UTC()

	if err := t.sender.Deliver(ctx, pref, message); err != nil {
		if logErr := t.deliveryRepo.Insert(pref.ID, 0, false, err.Error(), sentAt); logErr != nil {
			slog.Error("Failed to log delivery failure", "recipient", pref.ID, "error", logErr)
		}
		return fmt.Errorf("failed to deliver digest: %w", err)
	}

	if err := t.recipientRepo.RecordDelivery(pref.ID, len(articles), sentAt); err != nil {
		slog.Error("Failed to update recipient stats", "recipient", pref.ID, "error", err)
	}
	if err := t.deliveryRepo.Insert(pref.ID, len(articles), true, "", sentAt); err != nil {
		slog.Error("Failed to log delivery", "recipient", pref.ID, "error", err)
	}

	slog.Info("Task completed",
		"type", "SendDigest",
		"recipient", pref.ID,
		"duration", t.GetDuration(),
		"articles", len(articles))

	return nil
}
