package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fmaia/digesto/app/recipient"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewConnection(path)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}

func testPreference() *recipient.Preference {
	return &recipient.Preference{
		Name:           "Dona Maria",
		Phone:          "+5511999990000",
		Active:         true,
		Categories:     []string{"health", "general"},
		ExcludedTopics: []string{"violencia"},
		MaxItems:       5,
		Frequency:      recipient.FrequencyDaily,
	}
}

func TestRecipientRepository_CreateAndGet(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	p := testPreference()
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	got, err := repo.Get(p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() returned nil for existing recipient")
	}
	if got.Name != p.Name || got.Phone != p.Phone {
		t.Errorf("Get() = %q/%q, want %q/%q", got.Name, got.Phone, p.Name, p.Phone)
	}
	if !got.Active {
		t.Error("Get() Active = false, want true")
	}
	if len(got.Categories) != 2 || got.Categories[0] != "health" {
		t.Errorf("Get() Categories = %v, want [health general]", got.Categories)
	}
	if len(got.ExcludedTopics) != 1 || got.ExcludedTopics[0] != "violencia" {
		t.Errorf("Get() ExcludedTopics = %v, want [violencia]", got.ExcludedTopics)
	}
	if got.Frequency != recipient.FrequencyDaily {
		t.Errorf("Get() Frequency = %q, want %q", got.Frequency, recipient.FrequencyDaily)
	}
	if got.Stats.LastSentAt != nil {
		t.Error("Get() LastSentAt should be nil before any delivery")
	}
}

func TestRecipientRepository_GetMissing(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	got, err := repo.Get("no-such-id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %+v, want nil for missing recipient", got)
	}
}

func TestRecipientRepository_ListActive(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	active := testPreference()
	if err := repo.Create(active); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	inactive := testPreference()
	inactive.Name = "Seu Jose"
	inactive.Active = false
	if err := repo.Create(inactive); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List() returned %d recipients, want 2", len(all))
	}

	got, err := repo.ListActive()
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListActive() returned %d recipients, want 1", len(got))
	}
	if got[0].ID != active.ID {
		t.Errorf("ListActive() returned %s, want %s", got[0].ID, active.ID)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestRecipientRepository_Update(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	p := testPreference()
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p.Name = "Dona Maria Silva"
	p.Categories = []string{"technology"}
	p.MaxItems = 3
	if err := repo.Update(p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "Dona Maria Silva" {
		t.Errorf("Name = %q after update", got.Name)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "technology" {
		t.Errorf("Categories = %v after update", got.Categories)
	}
	if got.MaxItems != 3 {
		t.Errorf("MaxItems = %d after update, want 3", got.MaxItems)
	}
}

func TestRecipientRepository_UpdateMissing(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	p := testPreference()
	p.ID = "no-such-id"
	p.CreatedAt = time.Now()
	if err := repo.Update(p); err == nil {
		t.Error("Update() on missing recipient should fail")
	}
}

func TestRecipientRepository_Delete(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	p := testPreference()
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := repo.Get(p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("recipient still present after Delete()")
	}

	if err := repo.Delete(p.ID); err == nil {
		t.Error("Delete() on missing recipient should fail")
	}
}

func TestRecipientRepository_RecordDelivery(t *testing.T) {
	repo := NewRecipientRepository(newTestDB(t))

	p := testPreference()
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sentAt := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if err := repo.RecordDelivery(p.ID, 5, sentAt); err != nil {
		t.Fatalf("RecordDelivery() error = %v", err)
	}
	if err := repo.RecordDelivery(p.ID, 3, sentAt.Add(24*time.Hour)); err != nil {
		t.Fatalf("RecordDelivery() error = %v", err)
	}

	got, err := repo.Get(p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Stats.MessagesSent != 2 {
		t.Errorf("MessagesSent = %d, want 2", got.Stats.MessagesSent)
	}
	if got.Stats.ArticlesSent != 8 {
		t.Errorf("ArticlesSent = %d, want 8", got.Stats.ArticlesSent)
	}
	if got.Stats.LastSentAt == nil {
		t.Fatal("LastSentAt is nil after delivery")
	}
	if !got.Stats.LastSentAt.Equal(sentAt.Add(24 * time.Hour)) {
		t.Errorf("LastSentAt = %v, want %v", got.Stats.LastSentAt, sentAt.Add(24*time.Hour))
	}
}

func TestDeliveryRepository(t *testing.T) {
	db := newTestDB(t)
	recipients := NewRecipientRepository(db)
	deliveries := NewDeliveryRepository(db)

	p := testPreference()
	if err := recipients.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	base := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	if err := deliveries.Insert(p.ID, 5, true, "", base); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := deliveries.Insert(p.ID, 0, false, "webhook timeout", base.Add(24*time.Hour)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	count, err := deliveries.CountSince(base.Add(12 * time.Hour))
	if err != nil {
		t.Fatalf("CountSince() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountSince() = %d, want 1", count)
	}

	recent, err := deliveries.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("ListRecent() returned %d rows, want 2", len(recent))
	}
	if recent[0].Success || recent[0].Error != "webhook timeout" {
		t.Errorf("newest delivery = %+v, want the failed one first", recent[0])
	}
	if recent[1].ItemCount != 5 || !recent[1].Success {
		t.Errorf("oldest delivery = %+v, want the successful one", recent[1])
	}

	recent, err = deliveries.ListRecent(1)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("ListRecent(1) returned %d rows, want 1", len(recent))
	}
}

func TestDeliveryRepository_CascadeDelete(t *testing.T) {
	db := newTestDB(t)
	recipients := NewRecipientRepository(db)
	deliveries := NewDeliveryRepository(db)

	p := testPreference()
	if err := recipients.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := deliveries.Insert(p.ID, 2, true, "", time.Now().UTC()); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := recipients.Delete(p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	recent, err := deliveries.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("deliveries survived recipient delete: %d rows", len(recent))
	}
}
