package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Event describes an invoice event to store in the outbox.
type Event struct {
	AggregateID snowflake.ID
	Type        string
	Payload     map[string]any
	DedupeKey   string
}

// Record is the stored outbox row.
type Record struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	AggregateID snowflake.ID      `gorm:"not null;index" json:"aggregate_id"`
	EventType   string            `gorm:"type:text;not null" json:"event_type"`
	Payload     datatypes.JSONMap `gorm:"type:json" json:"payload"`
	DedupeKey   *string           `gorm:"type:text;uniqueIndex" json:"dedupe_key,omitempty"`
	Published   bool              `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "invoice_events" }

// Outbox inserts invoice events into the invoice_events table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	if o == nil {
		return errors.New("outbox_unavailable")
	}
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

// Pending returns unpublished events oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Record, error) {
	if o == nil || o.db == nil {
		return nil, errors.New("outbox_unavailable")
	}
	if limit <= 0 {
		limit = 100
	}
	var records []Record
	err := o.db.WithContext(ctx).
		Where("published = ?", false).
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// MarkPublished flags the given events as delivered.
func (o *Outbox) MarkPublished(ctx context.Context, ids ...snowflake.ID) error {
	if o == nil || o.db == nil {
		return errors.New("outbox_unavailable")
	}
	if len(ids) == 0 {
		return nil
	}
	return o.db.WithContext(ctx).
		Model(&Record{}).
		Where("id IN ?", ids).
		Update("published", true).Error
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.AggregateID == 0 {
		return errors.New("invalid_aggregate_id")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	record := Record{
		ID:          o.genID.Generate(),
		AggregateID: event.AggregateID,
		EventType:   name,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		record.DedupeKey = &dedupe
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(&record).Error
}
