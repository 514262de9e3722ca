package document

// Type is the kind of financial document
type Type string

const (
	TypeQuote          Type = "Quote"
	TypeInvoice        Type = "Invoice"
	TypePurchaseOrder  Type = "Purchase Order"
	TypePaymentVoucher Type = "Payment Voucher"
)

// IsValid reports whether the type is a known document type
func (t Type) IsValid() bool {
	switch t {
	case TypeQuote, TypeInvoice, TypePurchaseOrder, TypePaymentVoucher:
		return true
	}
	return false
}

// Status is a type-dependent lifecycle state
type Status string

const (
	StatusPending      Status = "Pending"
	StatusConverted    Status = "Converted"
	StatusRejected     Status = "Rejected"
	StatusCleared      Status = "Cleared"
	StatusNotDelivered Status = "Not Delivered"
	StatusDelivered    Status = "Delivered"
	StatusPaid         Status = "Paid"
)

// InitialStatus returns the state a freshly created document starts in
func (t Type) InitialStatus() Status {
	if t == TypePurchaseOrder {
		return StatusNotDelivered
	}
	return StatusPending
}

// Statuses returns the full state set for the type:
//
//	Quote           Pending -> {Converted, Rejected}
//	Invoice         Pending -> Cleared
//	Purchase Order  Not Delivered -> Delivered
//	Payment Voucher Pending -> Paid
func (t Type) Statuses() []Status {
	switch t {
	case TypeQuote:
		return []Status{StatusPending, StatusConverted, StatusRejected}
	case TypeInvoice:
		return []Status{StatusPending, StatusCleared}
	case TypePurchaseOrder:
		return []Status{StatusNotDelivered, StatusDelivered}
	case TypePaymentVoucher:
		return []Status{StatusPending, StatusPaid}
	}
	return nil
}

// ValidStatus reports whether s belongs to the type's state set
func (t Type) ValidStatus(s Status) bool {
	for _, known := range t.Statuses() {
		if known == s {
			return true
		}
	}
	return false
}

// DefaultCategory returns the reporting category for the type
func (t Type) DefaultCategory() Category {
	switch t {
	case TypePaymentVoucher:
		return CategoryExpense
	case TypePurchaseOrder:
		return CategoryInternal
	default:
		return CategoryIncome
	}
}

// NumberPrefix returns the display number prefix for the type
func (t Type) NumberPrefix() string {
	switch t {
	case TypeQuote:
		return "QT"
	case TypeInvoice:
		return "INV"
	case TypePurchaseOrder:
		return "PO"
	case TypePaymentVoucher:
		return "PV"
	}
	return "DOC"
}
