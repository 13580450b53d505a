package domain

import "time"

// Firm is the tenancy unit: every payment, invoice, client, and ledger entry
// belongs to exactly one firm.
type Firm struct {
	FirmID              string  `json:"firmID"` // Primary key (UUID)
	Name                string  `json:"name"`
	DefaultCurrencyCode *string `json:"defaultCurrencyCode,omitempty"`
	IsActive            bool    `json:"isActive"`
	AuditFields
}

// FirmRole defines the possible roles a user can have within a firm.
type FirmRole string

const (
	RoleAdmin    FirmRole = "ADMIN"
	RoleMember   FirmRole = "MEMBER"
	RoleReadOnly FirmRole = "READONLY"
	RoleRemoved  FirmRole = "REMOVED"
)

// FirmMembership represents the membership of a user in a firm.
type FirmMembership struct {
	UserID   string    `json:"userID"` // FK -> users.user_id
	FirmID   string    `json:"firmID"` // FK -> firms.firm_id
	Role     FirmRole  `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
