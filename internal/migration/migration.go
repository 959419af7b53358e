package migration

import (
	"fmt"

	"github.com/smallbiznis/opsdesk/internal/events"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(RunOnStart),
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&invoicedomain.Payment{},
		&events.Record{},
		&preferencedomain.Preference{},
	}
}

// Run brings the schema up to date.
func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migration: nil database")
	}
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration: %T: %w", model, err)
		}
	}
	return nil
}

func RunOnStart(db *gorm.DB, log *zap.Logger) error {
	if err := Run(db); err != nil {
		return err
	}
	log.Named("migration").Info("schema up to date", zap.Int("tables", len(Models())))
	return nil
}
