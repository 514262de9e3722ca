package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appdocument "github.com/myfin/backend/internal/application/document"
	"github.com/myfin/backend/internal/interfaces/http/dto"
)

// TransactionHandler serves the financial documents: quotes, invoices,
// purchase orders and payment vouchers.
type TransactionHandler struct {
	BaseHandler
	documents *appdocument.Service
}

// NewTransactionHandler creates a transaction handler
func NewTransactionHandler(svc *appdocument.Service, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{BaseHandler: NewBaseHandler(logger), documents: svc}
}

// RegisterRoutes wires the transaction endpoints
func (h *TransactionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	txs := rg.Group("/transactions")
	txs.GET("", h.List)
	txs.POST("", h.Save)
	txs.GET("/:id", h.Get)
	txs.PUT("/:id", h.Save)
	txs.DELETE("/:id", h.Delete)
	txs.POST("/:id/convert", h.Convert)
	txs.POST("/:id/receipt", h.AttachReceipt)
}

// List returns the active company's documents
func (h *TransactionHandler) List(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	txs, err := h.documents.List(c.Request.Context(), s.ActiveTenant())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, txs)
}

// Get returns one document
func (h *TransactionHandler) Get(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	tx, err := h.documents.Get(c.Request.Context(), actorFrom(s), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Save creates or updates a document. An empty id in the payload
// creates; the path id, when present, wins over the payload's.
func (h *TransactionHandler) Save(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "type is required")
		return
	}
	if id := c.Param("id"); id != "" {
		req.ID = id
	}

	tx := toTransaction(req)
	creating := tx.ID == ""
	saved, err := h.documents.Save(c.Request.Context(), actorFrom(s), tx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if creating {
		h.Created(c, saved)
		return
	}
	h.Success(c, saved)
}

// Convert fans a quote out into an invoice and a purchase order.
// Without confirm the call only checks eligibility.
func (h *TransactionHandler) Convert(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid payload")
		return
	}

	result, err := h.documents.ConvertQuote(c.Request.Context(), actorFrom(s), c.Param("id"), req.Confirm)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		h.Success(c, gin.H{"convertible": true})
		return
	}
	h.Success(c, gin.H{
		"quote":          result.Quote,
		"invoice":        result.Invoice,
		"purchase_order": result.PurchaseOrder,
	})
}

// Delete removes a document and its stored receipt, if any
func (h *TransactionHandler) Delete(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), actorFrom(s), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AttachReceipt uploads a receipt file and links it to the document
func (h *TransactionHandler) AttachReceipt(c *gin.Context) {
	s, ok := requireSession(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "file could not be read")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "file could not be read")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	tx, err := h.documents.AttachReceipt(c.Request.Context(), actorFrom(s),
		c.Param("id"), fileHeader.Filename, contentType, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}
