// Package ofx imports payments from OFX/QFX bank statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// postedStatus is the status given to every imported payment.
const postedStatus = "posted"

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line missing their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser reads credits from OFX/QFX statements as payments.
type Parser struct {
	reader io.Reader
	name   string
}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// NewFileSource returns a payment source that parses r when fetched.
func NewFileSource(name string, r io.Reader) *Parser {
	return &Parser{name: name, reader: r}
}

// Name identifies the payment source.
func (p *Parser) Name() string {
	if p.name == "" {
		return "ofx"
	}
	return "ofx:" + p.name
}

// FetchPayments parses the reader the source was created with.
func (p *Parser) FetchPayments(ctx context.Context) ([]model.Payment, error) {
	if p.reader == nil {
		return nil, fmt.Errorf("no OFX input configured")
	}
	return p.ParseFile(ctx, p.reader)
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN, or ERROR
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns its credits as payments.
// Debits are ignored.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Payment, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var payments []model.Payment
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			payments = append(payments, p.convertList(ctx, stmt.BankTranList, stmt.CurDef)...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			payments = append(payments, p.convertList(ctx, stmt.BankTranList, stmt.CurDef)...)
		}
	}

	slog.Info("Parsed OFX file",
		"payments", len(payments),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return payments, nil
}

func (p *Parser) convertList(ctx context.Context, list *ofxgo.TransactionList, curDef ofxgo.CurrSymbol) []model.Payment {
	if list == nil {
		return nil
	}

	currency := strings.ToLower(curDef.String())

	var payments []model.Payment
	for _, ofxTx := range list.Transactions {
		if ctx.Err() != nil {
			break
		}

		cents, err := toCents(ofxTx.TrnAmt)
		if err != nil {
			slog.Warn("Skipping transaction with unreadable amount", "fitid", ofxTx.FiTID, "error", err)
			continue
		}
		if cents <= 0 {
			continue
		}

		payments = append(payments, model.Payment{
			PaymentID:   string(ofxTx.FiTID),
			ProgramName: programName(ofxTx),
			Amount:      cents,
			Currency:    currency,
			Status:      postedStatus,
			Created:     ofxTx.DtPosted.Time,
		})
	}
	return payments
}

// toCents converts an OFX amount to minor units, rounding half away from zero.
func toCents(amt ofxgo.Amount) (int64, error) {
	d, err := decimal.NewFromString(amt.FloatString(3))
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// programName prefers MEMO, then PAYEE, then NAME.
func programName(tx ofxgo.Transaction) string {
	if memo := strings.TrimSpace(string(tx.Memo)); memo != "" {
		return memo
	}
	if tx.Payee != nil {
		if payee := strings.TrimSpace(string(tx.Payee.Name)); payee != "" {
			return payee
		}
	}
	if name := strings.TrimSpace(string(tx.Name)); name != "" {
		return name
	}
	return model.UnknownProgram
}
