package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fmaia/digesto/app/recipient"
)

// SQLRecipientRepository persists recipient preferences. Category and topic
// sets are stored as JSON text columns; timestamps as RFC 3339 strings.
type SQLRecipientRepository struct {
	db *DB
}

func NewRecipientRepository(db *DB) *SQLRecipientRepository {
	return &SQLRecipientRepository{db: db}
}

const recipientColumns = `id, name, phone, active, categories, excluded_topics,
	max_items, frequency, messages_sent, articles_sent, last_sent_at,
	created_at, updated_at`

func (r *SQLRecipientRepository) List() ([]recipient.Preference, error) {
	return r.list(`SELECT ` + recipientColumns + ` FROM recipients ORDER BY created_at`)
}

func (r *SQLRecipientRepository) ListActive() ([]recipient.Preference, error) {
	return r.list(`SELECT ` + recipientColumns + ` FROM recipients WHERE active = 1 ORDER BY created_at`)
}

func (r *SQLRecipientRepository) list(query string) ([]recipient.Preference, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var prefs []recipient.Preference
	for rows.Next() {
		p, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipient rows: %w", err)
	}
	return prefs, nil
}

func (r *SQLRecipientRepository) Get(id string) (*recipient.Preference, error) {
	row := r.db.QueryRow(`SELECT `+recipientColumns+` FROM recipients WHERE id = ?`, id)

	p, err := scanRecipient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLRecipientRepository) Create(p *recipient.Preference) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO recipients (`+recipientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Phone, boolToInt(p.Active),
		encodeSet(p.Categories), encodeSet(p.ExcludedTopics),
		p.MaxItems, string(p.Frequency),
		p.Stats.MessagesSent, p.Stats.ArticlesSent, encodeNullableTime(p.Stats.LastSentAt),
		encodeTime(p.CreatedAt), encodeTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	return nil
}

func (r *SQLRecipientRepository) Update(p *recipient.Preference) error {
	p.UpdatedAt = time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE recipients
		SET name = ?, phone = ?, active = ?, categories = ?, excluded_topics = ?,
		    max_items = ?, frequency = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Phone, boolToInt(p.Active),
		encodeSet(p.Categories), encodeSet(p.ExcludedTopics),
		p.MaxItems, string(p.Frequency), encodeTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update recipient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recipient %s not found", p.ID)
	}
	return nil
}

func (r *SQLRecipientRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM recipients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("recipient %s not found", id)
	}
	return nil
}

func (r *SQLRecipientRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM recipients`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}
	return count, nil
}

func (r *SQLRecipientRepository) RecordDelivery(id string, articleCount int, sentAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE recipients
		SET messages_sent = messages_sent + 1,
		    articles_sent = articles_sent + ?,
		    last_sent_at = ?,
		    updated_at = ?
		WHERE id = ?
	`, articleCount, encodeTime(sentAt), encodeTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row rowScanner) (*recipient.Preference, error) {
	var (
		p          recipient.Preference
		active     int
		categories string
		topics     string
		frequency  string
		lastSent   sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(&p.ID, &p.Name, &p.Phone, &active, &categories, &topics,
		&p.MaxItems, &frequency, &p.Stats.MessagesSent, &p.Stats.ArticlesSent,
		&lastSent, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipient row: %w", err)
	}

	p.Active = active != 0
	p.Categories = decodeSet(categories)
	p.ExcludedTopics = decodeSet(topics)
	p.Frequency = recipient.Frequency(frequency)
	p.CreatedAt = decodeTime(createdAt)
	p.UpdatedAt = decodeTime(updatedAt)
	if lastSent.Valid {
		ts := decodeTime(lastSent.String)
		p.Stats.LastSentAt = &ts
	}

	return &p, nil
}

func encodeSet(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeSet(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func encodeNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
