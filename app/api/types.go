package api

import (
	"github.com/fmaia/digesto/app/database"
	"github.com/fmaia/digesto/app/digest"
	"github.com/fmaia/digesto/app/feed"
	"github.com/fmaia/digesto/app/sources"
	"github.com/fmaia/digesto/app/tasks"
	"github.com/fmaia/digesto/app/transport"
)

type Handler struct {
	recipientRepo database.RecipientRepository
	deliveryRepo  database.DeliveryRepository
	registry      *sources.Registry
	engine        *digest.Engine
	cache         *feed.SeenCache
	sender        transport.Sender
	scheduler     tasks.TaskSchedulerInterface
	maxItems      int
}

// recipientRequest is the JSON body accepted by the create and update
// endpoints. Pointer fields distinguish "absent" from zero on update.
type recipientRequest struct {
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	Active         *bool    `json:"active"`
	Categories     []string `json:"categories"`
	ExcludedTopics []string `json:"excluded_topics"`
	MaxItems       int      `json:"max_items"`
	Frequency      string   `json:"frequency"`
}
