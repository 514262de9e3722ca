package activity

import (
	"time"

	"github.com/google/uuid"
)

// Collection is the document store collection for activity records
const Collection = "activities"

// Sentinels used when the acting user or company is unknown
const (
	SystemUser    = "System"
	GlobalCompany = "Global"
)

// Activity is one immutable audit record. Records are append-only:
// nothing in the system updates or deletes them.
type Activity struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	CompanyID string `bson:"company_id,omitempty" json:"company_id,omitempty"`
	Company   string `bson:"company" json:"company"`
	Action    string `bson:"action" json:"action"`
	Details   string `bson:"details" json:"details"`
	User      string `bson:"user" json:"user"`
	Date      string `bson:"date" json:"date"`
}

// New builds an audit record, applying the System/Global sentinels
// for a missing actor or company. The timestamp is ISO-8601.
func New(action, details, username, companyID, companyName string, at time.Time) *Activity {
	if username == "" {
		username = SystemUser
	}
	if companyName == "" {
		companyName = GlobalCompany
	}
	return &Activity{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Company:   companyName,
		Action:    action,
		Details:   details,
		User:      username,
		Date:      at.UTC().Format(time.RFC3339),
	}
}
