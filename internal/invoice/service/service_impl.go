package service

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/events"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   invoicedomain.Repository
	Outbox *events.Outbox `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID  *snowflake.Node
	clock  clock.Clock
	repo   invoicedomain.Repository
	outbox *events.Outbox
}

func NewService(p ServiceParam) invoicedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:  p.GenID,
		clock:  clk,
		repo:   p.Repo,
		outbox: p.Outbox,
	}
}

// withDB returns a copy of the service bound to db, typically a transaction.
func (s *Service) withDB(db *gorm.DB) *Service {
	clone := *s
	clone.db = db
	return &clone
}

func (s *Service) Transaction(ctx context.Context, fn func(invoicedomain.Service) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.withDB(tx))
	})
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	pageSize := int(req.PageSize)
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := invoicedomain.ListFilter{
		ClientID:  strings.TrimSpace(req.ClientID),
		ProjectID: strings.TrimSpace(req.ProjectID),
		Status:    strings.ToLower(strings.TrimSpace(req.Status)),
		Limit:     pageSize + 1,
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		afterID, err := decodePageToken(token)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		filter.AfterID = afterID
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	resp := invoicedomain.ListInvoiceResponse{Invoices: items}
	if len(items) > pageSize {
		resp.Invoices = items[:pageSize]
		resp.HasMore = true
		resp.NextPageToken = encodePageToken(resp.Invoices[pageSize-1].ID)
	}
	if resp.Invoices == nil {
		resp.Invoices = []invoicedomain.Invoice{}
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return nil, err
	}
	return s.loadInvoice(ctx, s.db, invoiceID)
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return nil, invoicedomain.ErrInvalidClient
	}
	status, err := normalizeStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(req.TaxRate, req.DiscountAmount, req.Subtotal, req.TaxAmount, req.Total); err != nil {
		return nil, err
	}

	balance := req.Total
	if req.BalanceDue != nil {
		if !finite(*req.BalanceDue) {
			return nil, invoicedomain.ErrInvalidAmount
		}
		balance = *req.BalanceDue
	}

	now := s.clock.Now()
	invoice := &invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		InvoiceNumber:  strings.TrimSpace(req.InvoiceNumber),
		Status:         status,
		ProjectID:      strings.TrimSpace(req.ProjectID),
		JobID:          strings.TrimSpace(req.JobID),
		QuoteID:        strings.TrimSpace(req.QuoteID),
		ClientID:       clientID,
		Reference:      req.Reference,
		BillingAddress: req.BillingAddress,
		TaxRate:        req.TaxRate,
		DiscountAmount: req.DiscountAmount,
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		Total:          req.Total,
		BalanceDue:     balance,
		InvoiceDate:    strings.TrimSpace(req.InvoiceDate),
		DueDate:        strings.TrimSpace(req.DueDate),
		PaymentTerms:   strings.TrimSpace(req.PaymentTerms),
		Notes:          req.Notes,
		InternalNotes:  req.InternalNotes,
		Terms:          req.Terms,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			return err
		}
		return s.publish(ctx, tx, events.EventInvoiceCreated, invoice, invoicePayload(invoice))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("client_id", invoice.ClientID),
	)
	invoice.LineItems = []invoicedomain.LineItem{}
	invoice.Payments = []invoicedomain.Payment{}
	return invoice, nil
}

func (s *Service) Update(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return nil, err
	}

	var updated *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice.Status == invoicedomain.InvoiceStatusVoid {
			return invoicedomain.ErrInvoiceVoided
		}
		if err := applyUpdate(invoice, req); err != nil {
			return err
		}
		invoice.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		if err := s.publish(ctx, tx, events.EventInvoiceUpdated, invoice, invoicePayload(invoice)); err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice updated", zap.String("invoice_id", updated.ID.String()))
	return updated, nil
}

func (s *Service) CreateLineItem(ctx context.Context, req invoicedomain.CreateLineItemRequest) (*invoicedomain.LineItem, error) {
	invoiceID, err := parseID(req.InvoiceID, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, invoicedomain.ErrInvalidDescription
	}
	if err := validateLine(req.Quantity, req.UnitPrice); err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}

	position := req.Position
	if position < 0 {
		position = 0
	}

	now := s.clock.Now()
	item := &invoicedomain.LineItem{
		ID:          s.genID.Generate(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Amount:      req.Quantity * req.UnitPrice,
		Position:    position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertLineItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) UpdateLineItem(ctx context.Context, id string, req invoicedomain.UpdateLineItemRequest) (*invoicedomain.LineItem, error) {
	itemID, err := parseID(id, invoicedomain.ErrInvalidLineItemID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindLineItem(ctx, s.db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, invoicedomain.ErrLineItemNotFound
	}
	// Another invoice's item is reported as missing.
	if scope := strings.TrimSpace(req.InvoiceID); scope != "" && scope != item.InvoiceID.String() {
		return nil, invoicedomain.ErrLineItemNotFound
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, invoicedomain.ErrInvalidDescription
		}
		item.Description = description
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		item.UnitPrice = *req.UnitPrice
	}
	if err := validateLine(item.Quantity, item.UnitPrice); err != nil {
		return nil, err
	}
	if req.Quantity != nil || req.UnitPrice != nil {
		item.Amount = item.Quantity * item.UnitPrice
	}
	if req.Position != nil && *req.Position >= 0 {
		item.Position = *req.Position
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateLineItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) DeleteLineItem(ctx context.Context, id string) error {
	itemID, err := parseID(id, invoicedomain.ErrInvalidLineItemID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.DeleteLineItem(ctx, s.db, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return invoicedomain.ErrLineItemNotFound
	}
	return nil
}

func (s *Service) RecordPayment(ctx context.Context, invoiceID string, req invoicedomain.RecordPaymentRequest) (*invoicedomain.Payment, error) {
	id, err := parseID(invoiceID, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return nil, err
	}
	if !finite(req.Amount) || req.Amount <= 0 {
		return nil, invoicedomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	paidAt := now
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}

	payment := &invoicedomain.Payment{
		ID:        s.genID.Generate(),
		InvoiceID: id,
		Amount:    req.Amount,
		Method:    strings.TrimSpace(req.Method),
		Reference: strings.TrimSpace(req.Reference),
		PaidAt:    paidAt,
		CreatedAt: now,
	}

	var balance float64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.loadInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice.Status == invoicedomain.InvoiceStatusVoid {
			return invoicedomain.ErrInvoiceVoided
		}
		if err := s.repo.InsertPayment(ctx, tx, payment); err != nil {
			return err
		}

		paid := decimal.NewFromFloat(invoice.AmountPaid).Add(decimal.NewFromFloat(payment.Amount))
		invoice.AmountPaid = paid.InexactFloat64()
		invoice.BalanceDue = balanceDue(invoice.Total, invoice.AmountPaid)
		if paid.GreaterThanOrEqual(decimal.NewFromFloat(invoice.Total)) {
			invoice.Status = invoicedomain.InvoiceStatusPaid
		}
		invoice.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}
		balance = invoice.BalanceDue

		return s.publishEvent(ctx, tx, events.Event{
			AggregateID: invoice.ID,
			Type:        events.EventInvoicePaymentRecorded,
			DedupeKey:   "payment:" + payment.ID.String(),
			Payload: events.PaymentPayload{
				InvoiceID:  invoice.ID.String(),
				PaymentID:  payment.ID.String(),
				Amount:     payment.Amount,
				BalanceDue: invoice.BalanceDue,
			}.ToMap(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payment recorded",
		zap.String("invoice_id", id.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.Float64("balance_due", balance),
	)
	return payment, nil
}

func (s *Service) loadInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	if invoice.LineItems == nil {
		invoice.LineItems = []invoicedomain.LineItem{}
	}
	if invoice.Payments == nil {
		invoice.Payments = []invoicedomain.Payment{}
	}
	return invoice, nil
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, eventType string, invoice *invoicedomain.Invoice, payload map[string]any) error {
	return s.publishEvent(ctx, tx, events.Event{
		AggregateID: invoice.ID,
		Type:        eventType,
		Payload:     payload,
	})
}

func (s *Service) publishEvent(ctx context.Context, tx *gorm.DB, event events.Event) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.PublishTx(ctx, tx, event)
}

func invoicePayload(invoice *invoicedomain.Invoice) map[string]any {
	return events.InvoicePayload{
		InvoiceID: invoice.ID.String(),
		ClientID:  invoice.ClientID,
		Status:    invoice.Status,
		Total:     invoice.Total,
	}.ToMap()
}

func applyUpdate(invoice *invoicedomain.Invoice, req invoicedomain.UpdateInvoiceRequest) error {
	if req.ClientID != nil {
		clientID := strings.TrimSpace(*req.ClientID)
		if clientID == "" {
			return invoicedomain.ErrInvalidClient
		}
		invoice.ClientID = clientID
	}
	if req.Status != nil {
		status, err := normalizeStatus(*req.Status)
		if err != nil {
			return err
		}
		invoice.Status = status
	}
	if req.InvoiceNumber != nil {
		invoice.InvoiceNumber = strings.TrimSpace(*req.InvoiceNumber)
	}
	if req.ProjectID != nil {
		invoice.ProjectID = strings.TrimSpace(*req.ProjectID)
	}
	if req.JobID != nil {
		invoice.JobID = strings.TrimSpace(*req.JobID)
	}
	if req.QuoteID != nil {
		invoice.QuoteID = strings.TrimSpace(*req.QuoteID)
	}
	if req.Reference != nil {
		invoice.Reference = *req.Reference
	}
	if req.BillingAddress != nil {
		invoice.BillingAddress = *req.BillingAddress
	}

	for _, field := range []struct {
		src *float64
		dst *float64
	}{
		{req.TaxRate, &invoice.TaxRate},
		{req.DiscountAmount, &invoice.DiscountAmount},
		{req.Subtotal, &invoice.Subtotal},
		{req.TaxAmount, &invoice.TaxAmount},
		{req.Total, &invoice.Total},
	} {
		if field.src != nil {
			*field.dst = *field.src
		}
	}
	if err := validateAmounts(invoice.TaxRate, invoice.DiscountAmount, invoice.Subtotal, invoice.TaxAmount, invoice.Total); err != nil {
		return err
	}

	switch {
	case req.BalanceDue != nil:
		if !finite(*req.BalanceDue) {
			return invoicedomain.ErrInvalidAmount
		}
		invoice.BalanceDue = *req.BalanceDue
	case req.Total != nil:
		invoice.BalanceDue = balanceDue(invoice.Total, invoice.AmountPaid)
	}

	if req.InvoiceDate != nil {
		invoice.InvoiceDate = strings.TrimSpace(*req.InvoiceDate)
	}
	if req.DueDate != nil {
		invoice.DueDate = strings.TrimSpace(*req.DueDate)
	}
	if req.PaymentTerms != nil {
		invoice.PaymentTerms = strings.TrimSpace(*req.PaymentTerms)
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}
	if req.InternalNotes != nil {
		invoice.InternalNotes = *req.InternalNotes
	}
	if req.Terms != nil {
		invoice.Terms = *req.Terms
	}
	return nil
}

func normalizeStatus(raw string) (string, error) {
	status := strings.ToLower(strings.TrimSpace(raw))
	switch status {
	case "":
		return invoicedomain.InvoiceStatusDraft, nil
	case invoicedomain.InvoiceStatusDraft,
		invoicedomain.InvoiceStatusSent,
		invoicedomain.InvoiceStatusPaid,
		invoicedomain.InvoiceStatusVoid:
		return status, nil
	default:
		return "", invoicedomain.ErrInvalidStatus
	}
}

func validateAmounts(taxRate float64, amounts ...float64) error {
	if !finite(taxRate) || taxRate < 0 {
		return invoicedomain.ErrInvalidTaxRate
	}
	for _, amount := range amounts {
		if !finite(amount) {
			return invoicedomain.ErrInvalidAmount
		}
	}
	return nil
}

func validateLine(quantity, unitPrice float64) error {
	if !finite(quantity) || quantity < 0 {
		return invoicedomain.ErrInvalidQuantity
	}
	if !finite(unitPrice) || unitPrice < 0 {
		return invoicedomain.ErrInvalidUnitPrice
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalidErr
	}
	return id, nil
}

func encodePageToken(id snowflake.ID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

func decodePageToken(token string) (snowflake.ID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, err
	}
	id, err := snowflake.ParseString(string(raw))
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("non_positive_cursor")
	}
	return id, nil
}

// balanceDue subtracts in decimal so repeated payments do not drift.
func balanceDue(total, paid float64) float64 {
	return decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(paid)).InexactFloat64()
}
