package database

import (
	"time"

	"github.com/fmaia/digesto/app/recipient"
)

type RecipientRepository interface {
	List() ([]recipient.Preference, error)
	ListActive() ([]recipient.Preference, error)
	Get(id string) (*recipient.Preference, error)
	Create(p *recipient.Preference) error
	Update(p *recipient.Preference) error
	Delete(id string) error
	Count() (int, error)

	// RecordDelivery bumps the recipient's delivery stats after a
	// successful send.
	RecordDelivery(id string, articleCount int, sentAt time.Time) error
}

// Delivery is one row of the delivery audit log.
type Delivery struct {
	ID          int64
	RecipientID string
	ItemCount   int
	Success     bool
	Error       string
	SentAt      time.Time
}

type DeliveryRepository interface {
	Insert(recipientID string, itemCount int, success bool, errMsg string, sentAt time.Time) error
	CountSince(since time.Time) (int, error)
	ListRecent(limit int) ([]Delivery, error)
}
