package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// OFXReader reads payments from OFX/QFX bank and credit card statements, as
// downloaded from the bank account a marketplace pays out to.
type OFXReader struct {
	r io.Reader
}

// NewOFXReader creates an OFX payment reader.
func NewOFXReader(r io.Reader) *OFXReader {
	return &OFXReader{r: r}
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes lose the closing bracket of bare opening tags.
	return openTagRegex.ReplaceAllString(content, "$1>")
}

// ReadPayments parses every statement transaction in the file.
func (o *OFXReader) ReadPayments(ctx context.Context) ([]model.PaymentInput, error) {
	content, err := io.ReadAll(o.r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var payments []model.PaymentInput
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			bankStmts++
			for _, tx := range stmt.BankTranList.Transactions {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				payments = append(payments, convertTransaction(tx))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			ccStmts++
			for _, tx := range stmt.BankTranList.Transactions {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				payments = append(payments, convertTransaction(tx))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"payments", len(payments),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return payments, nil
}

// convertTransaction maps an OFX transaction onto a payment. The amount keeps
// its sign: debits are negative.
func convertTransaction(tx ofxgo.Transaction) model.PaymentInput {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		amount = decimal.Zero
	}

	return model.PaymentInput{
		MarketplaceOrderID:     string(tx.FiTID),
		TransactionDescription: description(tx),
		TransactionType:        tx.TrnType.String(),
		PaymentDate:            tx.DtPosted.Format("2006-01-02"),
		Amount:                 amount,
	}
}

// description prefers the payee, then the name, and falls back to the memo
// when the name says nothing about the payment.
func description(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		return strings.TrimSpace(string(tx.Memo))
	}
	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "PAYMENT", "PIX", "TED", "DOC",
		"CREDITO", "CRÉDITO", "DEBITO", "DÉBITO", "PAGAMENTO", "TRANSFERENCIA", "TRANSFERÊNCIA":
		return true
	}
	return false
}
