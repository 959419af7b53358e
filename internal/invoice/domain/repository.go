package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	ClientID  string
	ProjectID string
	Status    string
	AfterID   snowflake.ID
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, error)

	InsertLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	UpdateLineItem(ctx context.Context, db *gorm.DB, item *LineItem) error
	FindLineItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LineItem, error)
	DeleteLineItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
}
