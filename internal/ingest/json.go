package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/spice-rules/internal/model"
	"gopkg.in/yaml.v3"
)

// JSONReader reads a JSON array of payments, or an object holding the array
// under "payments".
type JSONReader struct {
	r io.Reader
}

// NewJSONReader creates a JSON payment reader.
func NewJSONReader(r io.Reader) *JSONReader {
	return &JSONReader{r: r}
}

// ReadPayments decodes every payment in the input.
func (j *JSONReader) ReadPayments(ctx context.Context) ([]model.PaymentInput, error) {
	data, err := io.ReadAll(j.r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payments []model.PaymentInput
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Payments []model.PaymentInput `json:"payments"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse payments: %w", err)
		}
		payments = wrapped.Payments
	} else if err := json.Unmarshal(trimmed, &payments); err != nil {
		return nil, fmt.Errorf("failed to parse payments: %w", err)
	}

	return payments, nil
}

// YAMLReader reads a YAML list of payments.
type YAMLReader struct {
	r io.Reader
}

// NewYAMLReader creates a YAML payment reader.
func NewYAMLReader(r io.Reader) *YAMLReader {
	return &YAMLReader{r: r}
}

type yamlPayment struct {
	MarketplaceOrderID     string `yaml:"marketplaceOrderId"`
	TransactionDescription string `yaml:"transactionDescription"`
	TransactionType        string `yaml:"transactionType"`
	PaymentDate            string `yaml:"paymentDate"`
	Amount                 string `yaml:"amount"`
}

// ReadPayments decodes every payment in the input.
func (y *YAMLReader) ReadPayments(ctx context.Context) ([]model.PaymentInput, error) {
	var raw []yamlPayment
	if err := yaml.NewDecoder(y.r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse payments: %w", err)
	}

	payments := make([]model.PaymentInput, 0, len(raw))
	for i, p := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		amount, err := ParseAmount(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("payment %d: %w", i+1, err)
		}
		payments = append(payments, model.PaymentInput{
			MarketplaceOrderID:     p.MarketplaceOrderID,
			TransactionDescription: p.TransactionDescription,
			TransactionType:        p.TransactionType,
			PaymentDate:            p.PaymentDate,
			Amount:                 amount,
		})
	}
	return payments, nil
}
