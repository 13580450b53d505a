package models

import "time"

// Firm mirrors a row of the firms table.
type Firm struct {
	FirmID              string  `json:"firmID"`
	Name                string  `json:"name"`
	DefaultCurrencyCode *string `json:"defaultCurrencyCode,omitempty"`
	IsActive            bool    `json:"isActive"`
	AuditFields
}

// FirmMembership mirrors a row of the firm_users join table.
type FirmMembership struct {
	UserID   string    `json:"userID"`
	FirmID   string    `json:"firmID"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
