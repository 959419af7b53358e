package migration

import (
	"testing"

	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestRunCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := RunOnStart(db, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, table := range []string{"invoices", "invoice_line_items", "invoice_payments", "invoice_events", "ui_preferences"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
	if !db.Migrator().HasColumn("invoices", "billing_city") {
		t.Fatalf("expected embedded billing address columns")
	}
	// Idempotent.
	if err := Run(db); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestRunRejectsNilDB(t *testing.T) {
	if err := Run(nil); err == nil {
		t.Fatalf("expected error")
	}
}
