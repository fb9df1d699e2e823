package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/pattern"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// headerAliases maps accepted header names, normalized, to payment fields.
var headerAliases = map[string]string{
	"marketplace_order_id":    "order",
	"marketplaceorderid":      "order",
	"order_id":                "order",
	"pedido":                  "order",
	"transaction_description": "description",
	"transactiondescription":  "description",
	"description":             "description",
	"descricao":               "description",
	"transaction_type":        "type",
	"transactiontype":         "type",
	"type":                    "type",
	"tipo":                    "type",
	"amount":                  "amount",
	"valor":                   "amount",
	"payment_date":            "date",
	"paymentdate":             "date",
	"date":                    "date",
	"data":                    "date",
}

// CSVReader reads payments from CSV with a header row. Both comma and
// semicolon separated files are accepted.
type CSVReader struct {
	r io.Reader
}

// NewCSVReader creates a CSV payment reader.
func NewCSVReader(r io.Reader) *CSVReader {
	return &CSVReader{r: r}
}

// ReadPayments decodes every row after the header.
func (c *CSVReader) ReadPayments(ctx context.Context) ([]model.PaymentInput, error) {
	data, err := io.ReadAll(c.r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	content := strings.TrimPrefix(string(data), "\ufeff")

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if firstLine, _, _ := strings.Cut(content, "\n"); strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		reader.Comma = ';'
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ReplaceAll(pattern.NormalizeText(name), " ", "_")
		if field, ok := headerAliases[key]; ok {
			if _, seen := columns[field]; !seen {
				columns[field] = i
			}
		}
	}
	for _, required := range []string{"description", "amount"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var payments []model.PaymentInput
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		amount, err := ParseAmount(get("amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		payments = append(payments, model.PaymentInput{
			MarketplaceOrderID:     get("order"),
			TransactionDescription: get("description"),
			TransactionType:        get("type"),
			PaymentDate:            get("date"),
			Amount:                 amount,
		})
	}

	return payments, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
