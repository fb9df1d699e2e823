// Package model defines the data structures shared by the rule engine and its adapters.
package model

import (
	"crypto/sha256"
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentInput is a normalized marketplace payment record.
// It is the only shape the rule engine consumes.
type PaymentInput struct {
	MarketplaceOrderID     string          `json:"marketplaceOrderId" yaml:"marketplaceOrderId"`
	TransactionDescription string          `json:"transactionDescription" yaml:"transactionDescription"`
	TransactionType        string          `json:"transactionType" yaml:"transactionType"`
	PaymentDate            string          `json:"paymentDate" yaml:"paymentDate"`
	Amount                 decimal.Decimal `json:"amount" yaml:"amount"`
}

// Fingerprint derives a stable key from the identifying fields of the payment.
// Payment date is not part of the key: the same order line seen twice on
// different statement dates classifies identically.
func (p PaymentInput) Fingerprint() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		p.MarketplaceOrderID,
		p.TransactionDescription,
		p.TransactionType,
		p.Amount.String())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// FullText returns description and type joined by a single space.
func (p PaymentInput) FullText() string {
	return p.TransactionDescription + " " + p.TransactionType
}

// BatchKey is the key used for a payment in batch results.
func (p PaymentInput) BatchKey() string {
	if p.MarketplaceOrderID != "" {
		return p.MarketplaceOrderID
	}
	return p.Fingerprint()
}
