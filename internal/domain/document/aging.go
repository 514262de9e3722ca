package document

import (
	"math"
	"time"
)

// Tier is the read-only aging classification of an invoice
type Tier string

const (
	// TierNormal applies to every document that is not an open invoice
	TierNormal Tier = "Normal"
	// TierStandard is an open invoice aged 14 days or less
	TierStandard Tier = "Standard"
	// TierWatch is an open invoice aged more than 14 and up to 30 days
	TierWatch Tier = "Watch"
	// TierOverdue is an open invoice aged more than 30 days
	TierOverdue Tier = "Overdue"
)

// AgingTier classifies a document by how long its invoice has been open.
// Only invoices that are not yet Cleared are tiered; everything else is
// Normal. Age is the elapsed time in days, rounded up.
func AgingTier(tx *Transaction, today time.Time) Tier {
	if tx.Type != TypeInvoice || tx.Status == StatusCleared {
		return TierNormal
	}
	age := int(math.Ceil(today.Sub(tx.Date).Hours() / 24))
	switch {
	case age > 30:
		return TierOverdue
	case age > 14:
		return TierWatch
	default:
		return TierStandard
	}
}
