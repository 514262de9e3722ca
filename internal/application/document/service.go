// Package document implements the lifecycle of financial documents:
// creation, status transitions, quote conversion, receipts and deletion.
package document

import (
	"context"
	"time"

	"github.com/myfin/backend/internal/application/audit"
	"github.com/myfin/backend/internal/application/inventory"
	"github.com/myfin/backend/internal/domain/document"
	"github.com/myfin/backend/internal/domain/identity"
	"github.com/myfin/backend/internal/domain/shared"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"github.com/myfin/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Actor is the authenticated principal plus their active tenant scope
type Actor struct {
	Principal  identity.Principal
	TenantID   string
	TenantName string
}

// ConversionResult holds the outcome of a quote fan-out
type ConversionResult struct {
	Quote         *document.Transaction
	Invoice       *document.Transaction
	PurchaseOrder *document.Transaction
}

// Service handles document operations
type Service struct {
	store     docstore.Store
	audit     *audit.Writer
	inventory *inventory.Service
	blobs     storage.BlobStorage
	logger    *zap.Logger
	clock     func() time.Time
}

// NewService creates a document service
func NewService(store docstore.Store, audit *audit.Writer, inv *inventory.Service, blobs storage.BlobStorage, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		audit:     audit,
		inventory: inv,
		blobs:     blobs,
		logger:    logger,
		clock:     time.Now,
	}
}

// WithClock overrides the time source, for tests
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Validate checks the fields a document needs before it can be saved
func (s *Service) Validate(tx *document.Transaction) error {
	if !tx.Type.IsValid() {
		return shared.NewValidationError("type", "unknown document type")
	}
	if tx.ClientID == "" {
		return shared.NewValidationError("client_id", "a client must be selected")
	}
	if tx.Status != "" && !tx.Type.ValidStatus(tx.Status) {
		return shared.NewValidationError("status", "not valid for this document type")
	}
	return nil
}

// Save persists a document. A document without an ID is created under
// the actor's active tenant; an existing one is updated, with any status
// change recorded in its history. An Invoice transitioning to Cleared
// deducts stock for its product-linked lines.
func (s *Service) Save(ctx context.Context, actor Actor, tx *document.Transaction) (*document.Transaction, error) {
	if err := s.Validate(tx); err != nil {
		return nil, err
	}
	if tx.ID == "" {
		return s.create(ctx, actor, tx)
	}
	return s.update(ctx, actor, tx)
}

func (s *Service) create(ctx context.Context, actor Actor, tx *document.Transaction) (*document.Transaction, error) {
	if actor.TenantID == "" {
		return nil, shared.ErrNoActiveCompany
	}
	now := s.clock()

	tx.CompanyID = actor.TenantID
	if tx.Category == "" {
		tx.Category = tx.Type.DefaultCategory()
	}
	if tx.Number == "" {
		tx.Number = document.NewNumber(tx.Type, now)
	}
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if tx.Status == "" {
		tx.Status = tx.Type.InitialStatus()
	}
	tx.ComputeTotal()
	tx.History = nil
	tx.RecordCreation(now)

	id, err := s.store.Create(ctx, document.Collection, tx)
	if err != nil {
		return nil, err
	}
	tx.ID = id

	s.audit.Record(ctx, "Created "+string(tx.Type), tx.Number, actor.Principal.Username, actor.TenantID, actor.TenantName)

	// An invoice born Cleared skips the Pending->Cleared transition but
	// is still a completed sale.
	if tx.Type == document.TypeInvoice && tx.Status == document.StatusCleared {
		if err := s.inventory.DeductStock(ctx, tx.Items); err != nil {
			s.logger.Warn("stock deduction failed after invoice cleared",
				zap.String("invoice", tx.Number), zap.Error(err))
		}
	}
	return tx, nil
}

// scoped loads a document and enforces the actor's tenant scope. A
// super admin at the headquarters view (no active tenant) reaches every
// tenant; everyone else only their own. A cross-tenant id reads as not
// found so record existence does not leak.
func (s *Service) scoped(ctx context.Context, actor Actor, id string) (*document.Transaction, error) {
	var tx document.Transaction
	if err := s.store.FindByID(ctx, document.Collection, id, &tx); err != nil {
		return nil, err
	}
	if actor.TenantID != "" && tx.CompanyID != actor.TenantID {
		return nil, shared.ErrNotFound
	}
	return &tx, nil
}

func (s *Service) update(ctx context.Context, actor Actor, tx *document.Transaction) (*document.Transaction, error) {
	found, err := s.scoped(ctx, actor, tx.ID)
	if err != nil {
		return nil, err
	}
	persisted := *found
	now := s.clock()

	// Scope and identity fields never move on update.
	tx.CompanyID = persisted.CompanyID
	tx.Number = persisted.Number
	tx.History = persisted.History

	tx.ComputeTotal()
	transitioned := tx.RecordTransition(persisted.Status, now)

	if err := s.store.Set(ctx, document.Collection, tx.ID, tx); err != nil {
		return nil, err
	}

	if transitioned {
		s.audit.Record(ctx, "Updated "+string(tx.Type)+" Status", tx.Number+" to "+string(tx.Status),
			actor.Principal.Username, persisted.CompanyID, actor.TenantName)

		if tx.Type == document.TypeInvoice && tx.Status == document.StatusCleared {
			if err := s.inventory.DeductStock(ctx, tx.Items); err != nil {
				s.logger.Warn("stock deduction failed after invoice cleared",
					zap.String("invoice", tx.Number), zap.Error(err))
			}
		}
	} else {
		s.audit.Record(ctx, "Updated "+string(tx.Type), tx.Number,
			actor.Principal.Username, persisted.CompanyID, actor.TenantName)
	}
	return tx, nil
}

// ConvertQuote fans a quote out into an Invoice and a Purchase Order.
// confirm=false means the user declined at the confirmation prompt; the
// quote is left untouched and no error is raised. The three writes are
// independent: a failure mid-way leaves the earlier writes in place.
func (s *Service) ConvertQuote(ctx context.Context, actor Actor, quoteID string, confirm bool) (*ConversionResult, error) {
	found, err := s.scoped(ctx, actor, quoteID)
	if err != nil {
		return nil, err
	}
	quote := *found
	if err := quote.Convertible(); err != nil {
		return nil, err
	}
	if !confirm {
		return nil, nil
	}
	now := s.clock()

	invoice := quote.CloneAsInvoice(now)
	po := quote.CloneAsPurchaseOrder(now)
	quote.MarkConverted(now)

	if err := s.store.Set(ctx, document.Collection, quote.ID, &quote); err != nil {
		return nil, err
	}
	if _, err := s.store.Create(ctx, document.Collection, invoice); err != nil {
		return nil, err
	}
	if _, err := s.store.Create(ctx, document.Collection, po); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "Converted Quote", quote.Number+" to "+invoice.Number+" & "+po.Number,
		actor.Principal.Username, quote.CompanyID, actor.TenantName)

	return &ConversionResult{Quote: &quote, Invoice: invoice, PurchaseOrder: po}, nil
}

// Delete removes a document. The capability check runs before any store
// access; a stored receipt blob is deleted best-effort afterwards.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.Principal.Role.Can(identity.CapDeleteRecord) {
		return shared.ErrAccessDenied
	}
	tx, err := s.scoped(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, document.Collection, id); err != nil {
		return err
	}
	if tx.Receipt != nil && tx.Receipt.Path != "" {
		if err := s.blobs.Delete(ctx, tx.Receipt.Path); err != nil {
			s.logger.Warn("failed to delete receipt blob",
				zap.String("path", tx.Receipt.Path), zap.Error(err))
		}
	}
	s.audit.Record(ctx, "Deleted "+string(tx.Type), tx.Number,
		actor.Principal.Username, tx.CompanyID, actor.TenantName)
	return nil
}

// AttachReceipt uploads a receipt file and links it to the document
func (s *Service) AttachReceipt(ctx context.Context, actor Actor, id, filename, contentType string, data []byte) (*document.Transaction, error) {
	tx, err := s.scoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key := "receipts/" + tx.CompanyID + "/" + tx.ID + "/" + filename
	url, err := s.blobs.Upload(ctx, key, data, contentType)
	if err != nil {
		return nil, err
	}
	tx.Receipt = &document.Receipt{
		URL:  url,
		Path: key,
		Type: contentType,
		Name: filename,
	}
	if err := s.store.Set(ctx, document.Collection, tx.ID, tx); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "Attached Receipt", tx.Number,
		actor.Principal.Username, tx.CompanyID, actor.TenantName)
	return tx, nil
}

// Get loads one document within the actor's tenant scope
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*document.Transaction, error) {
	return s.scoped(ctx, actor, id)
}

// List returns the documents of a tenant
func (s *Service) List(ctx context.Context, companyID string) ([]document.Transaction, error) {
	var txs []document.Transaction
	if err := s.store.Find(ctx, document.Collection, map[string]any{"company_id": companyID}, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
