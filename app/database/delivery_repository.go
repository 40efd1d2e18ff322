package database

import (
	"fmt"
	"time"
)

// SQLDeliveryRepository keeps the append-only delivery audit log.
type SQLDeliveryRepository struct {
	db *DB
}

func NewDeliveryRepository(db *DB) *SQLDeliveryRepository {
	return &SQLDeliveryRepository{db: db}
}

func (r *SQLDeliveryRepository) Insert(recipientID string, itemCount int, success bool, errMsg string, sentAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO deliveries (recipient_id, item_count, success, error, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`, recipientID, itemCount, boolToInt(success), errMsg, encodeTime(sentAt))
	if err != nil {
		return fmt.Errorf("failed to insert delivery record: %w", err)
	}
	return nil
}

func (r *SQLDeliveryRepository) CountSince(since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM deliveries WHERE sent_at >= ?`,
		encodeTime(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}

func (r *SQLDeliveryRepository) ListRecent(limit int) ([]Delivery, error) {
	rows, err := r.db.Query(`
		SELECT id, recipient_id, item_count, success, error, sent_at
		FROM deliveries
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var (
			d       Delivery
			success int
			sentAt  string
		)
		if err := rows.Scan(&d.ID, &d.RecipientID, &d.ItemCount, &success, &d.Error, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery row: %w", err)
		}
		d.Success = success != 0
		d.SentAt = decodeTime(sentAt)
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery rows: %w", err)
	}
	return deliveries, nil
}

var _ DeliveryRepository = (*SQLDeliveryRepository)(nil)
var _ RecipientRepository = (*SQLRecipientRepository)(nil)
