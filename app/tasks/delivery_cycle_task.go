package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fmaia/digesto/app/database"
	"github.com/fmaia/digesto/app/digest"
	"github.com/fmaia/digesto/app/recipient"
	"github.com/fmaia/digesto/app/sources"
	"github.com/fmaia/digesto/app/transport"
)

// DeliveryCycleTask runs one digest cycle: find the recipients due right
// now, build a shared article pool for their categories, and send each one
// a personalized digest. Recipients sharing a category never trigger a
// second fetch for it.
type DeliveryCycleTask struct {
	Task
	recipientRepo database.RecipientRepository
	deliveryRepo  database.DeliveryRepository
	registry      *sources.Registry
	engine        *digest.Engine
	sender        transport.Sender
	deliveryHour  string
	location      *time.Location
	maxItems      int
	now           func() time.Time
}

func NewDeliveryCycleTask(recipientRepo database.RecipientRepository, deliveryRepo database.DeliveryRepository,
	registry *sources.Registry, engine *digest.Engine, sender transport.Sender,
	deliveryHour string, location *time.Location, maxItems int) *DeliveryCycleTask {
	return &DeliveryCycleTask{
		Task:          NewTask(TaskTypeDeliveryCycle, "all"),
		recipientRepo: recipientRepo,
		deliveryRepo:  deliveryRepo,
		registry:      registry,
		engine:        engine,
		sender:        sender,
		deliveryHour:  deliveryHour,
		location:      location,
		maxItems:      maxItems,
		now:           time.Now,
	}
}

func (t *DeliveryCycleTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := t.now().In(t.location)

	if !t.deliveryTimeReached(now) {
		slog.Debug("Delivery hour not reached yet", "delivery_hour", t.deliveryHour, "now", now.Format("15:04"))
		return nil
	}

	active, err := t.recipientRepo.ListActive()
	if err != nil {
		return fmt.Errorf("failed to list active recipients: %w", err)
	}

	var due []recipient.Preference
	for _, pref := range active {
		if !pref.Frequency.DueOn(now.Weekday()) {
			continue
		}
		if sentToday(pref.Stats.LastSentAt, now, t.location) {
			continue
		}
		due = append(due, pref)
	}

	if len(due) == 0 {
		slog.Debug("No recipients due for delivery", "active", len(active))
		return nil
	}

	pool := make(digest.Pool)
	for i := range due {
		due[i].Normalize(t.registry, t.maxItems)
		t.engine.BuildPool(ctx, pool, due[i].Categories)
	}

	delivered := 0
	failed := 0
	for i := range due {
		pref := &due[i]
		articles := digest.SelectFromPool(pref, pool)
		message := digest.Format(articles)
		sentAt := time.Now().UTC()

		if err := t.sender.Deliver(ctx, pref, message); err != nil {
			failed++
			slog.Warn("Digest delivery failed", "recipient", pref.ID, "error", err)
			if logErr := t.deliveryRepo.Insert(pref.ID, 0, false, err.Error(), sentAt); logErr != nil {
				slog.Error("Failed to log delivery failure", "recipient", pref.ID, "error", logErr)
			}
			continue
		}

		delivered++
		if err := t.recipientRepo.RecordDelivery(pref.ID, len(articles), sentAt); err != nil {
			slog.Error("Failed to update recipient stats", "recipient", pref.ID, "error", err)
		}
		if err := t.deliveryRepo.Insert(pref.ID, len(articles), true, "", sentAt); err != nil {
			slog.Error("Failed to log delivery", "recipient", pref.ID, "error", err)
		}
	}

	slog.Info("Task completed",
		"type", "DeliveryCycle",
		"duration", t.GetDuration(),
		"due", len(due),
		"delivered", delivered,
		"failed", failed,
		"categories", len(pool))

	if failed > 0 {
		return fmt.Errorf("%d of %d deliveries failed", failed, len(due))
	}
	return nil
}

func (t *DeliveryCycleTask) deliveryTimeReached(now time.Time) bool {
	var hour, minute int
	if _, err := fmt.Sscanf(t.deliveryHour, "%d:%d", &hour, &minute); err != nil {
		slog.Error("Invalid delivery hour, delivering anyway", "delivery_hour", t.deliveryHour, "error", err)
		return true
	}
	threshold := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return !now.Before(threshold)
}

func sentToday(lastSentAt *time.Time, now time.Time, loc *time.Location) bool {
	if lastSentAt == nil {
		return false
	}
	last := lastSentAt.In(loc)
	return last.Year() == now.Year() && last.YearDay() == now.YearDay()
}
