package dto

import (
	"github.com/lexledger/lexledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateClientRequest defines the data needed to create a client.
type CreateClientRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// ClientResponse defines the data returned for a client.
type ClientResponse struct {
	ClientID           string          `json:"clientID"`
	Name               string          `json:"name"`
	Email              string          `json:"email,omitempty"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	IsActive           bool            `json:"isActive"`
}

// ClientBalanceResponse exposes the derived outstanding balance.
type ClientBalanceResponse struct {
	ClientID           string          `json:"clientID"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
}

// ToClientResponse converts a domain.Client to ClientResponse DTO.
func ToClientResponse(c *domain.Client) ClientResponse {
	return ClientResponse{
		ClientID:           c.ClientID,
		Name:               c.Name,
		Email:              c.Email,
		OutstandingBalance: c.OutstandingBalance,
		IsActive:           c.IsActive,
	}
}
