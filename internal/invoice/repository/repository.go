package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() invoicedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	return db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := db.WithContext(ctx).
		Preload("LineItems", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		Preload("Payments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("paid_at ASC, id ASC")
		}).
		First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns invoices newest first. Limit+1 rows are requested by callers
// that need to know whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter invoicedomain.ListFilter) ([]invoicedomain.Invoice, error) {
	query := db.WithContext(ctx).Model(&invoicedomain.Invoice{})
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		query = query.Where("id < ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var invoices []invoicedomain.Invoice
	if err := query.Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) InsertLineItem(ctx context.Context, db *gorm.DB, item *invoicedomain.LineItem) error {
	return db.WithContext(ctx).Create(item).Error
}

func (r *repo) UpdateLineItem(ctx context.Context, db *gorm.DB, item *invoicedomain.LineItem) error {
	return db.WithContext(ctx).Save(item).Error
}

func (r *repo) FindLineItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.LineItem, error) {
	var item invoicedomain.LineItem
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) DeleteLineItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Delete(&invoicedomain.LineItem{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *invoicedomain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}
