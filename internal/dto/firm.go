package dto

import (
	"time"

	"github.com/lexledger/lexledger_backend/internal/core/domain"
)

// CreateFirmRequest defines the data needed to create a firm.
type CreateFirmRequest struct {
	Name                string `json:"name" binding:"required"`
	DefaultCurrencyCode string `json:"defaultCurrencyCode" binding:"omitempty,len=3"`
}

// AddFirmMemberRequest adds a user to a firm with a role.
type AddFirmMemberRequest struct {
	UserID string          `json:"userID" binding:"required"`
	Role   domain.FirmRole `json:"role" binding:"required,oneof=ADMIN MEMBER READONLY"`
}

// FirmResponse defines the data returned for a firm.
type FirmResponse struct {
	FirmID              string    `json:"firmID"`
	Name                string    `json:"name"`
	DefaultCurrencyCode *string   `json:"defaultCurrencyCode,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ToFirmResponse converts a domain.Firm to FirmResponse DTO.
func ToFirmResponse(f *domain.Firm) FirmResponse {
	return FirmResponse{
		FirmID:              f.FirmID,
		Name:                f.Name,
		DefaultCurrencyCode: f.DefaultCurrencyCode,
		CreatedAt:           f.CreatedAt,
	}
}

// ToFirmResponses converts a slice of domain firms.
func ToFirmResponses(firms []domain.Firm) []FirmResponse {
	responses := make([]FirmResponse, len(firms))
	for i := range firms {
		responses[i] = ToFirmResponse(&firms[i])
	}
	return responses
}
