// Package statement renders account statements as CSV files and reads
// them back for offline checks.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teller-dev/teller/internal/model"
	"github.com/teller-dev/teller/internal/money"
)

// Header is the CSV header for a statement file.
const Header = "id,account_id,type,amount,counterparty,description,balance_after,created_at"

const (
	numFields       = 8
	colID           = 0
	colAccountID    = 1
	colType         = 2
	colAmount       = 3
	colCounterparty = 4
	colDescription  = 5
	colBalanceAfter = 6
	colCreatedAt    = 7
)

// MarshalRecord converts a transaction record to a CSV row.
func MarshalRecord(rec model.TransactionRecord) []string {
	row := make([]string, numFields)
	row[colID] = rec.ID.String()
	row[colAccountID] = rec.AccountID.String()
	row[colType] = string(rec.Type)
	row[colAmount] = money.Format(rec.Amount)
	if rec.Counterparty != uuid.Nil {
		row[colCounterparty] = rec.Counterparty.String()
	}
	row[colDescription] = rec.Description
	row[colBalanceAfter] = money.Format(rec.BalanceAfter)
	row[colCreatedAt] = rec.CreatedAt.Format(time.RFC3339Nano)
	return row
}

// UnmarshalRecord converts a CSV row to a transaction record.
func UnmarshalRecord(record []string) (model.TransactionRecord, error) {
	if len(record) != numFields {
		return model.TransactionRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := uuid.Parse(record[colID])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing record ID %q: %w", record[colID], err)
	}
	accountID, err := uuid.Parse(record[colAccountID])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing account ID %q: %w", record[colAccountID], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	balanceAfter, err := decimal.NewFromString(record[colBalanceAfter])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing balance %q: %w", record[colBalanceAfter], err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, record[colCreatedAt])
	if err != nil {
		return model.TransactionRecord{}, fmt.Errorf("parsing timestamp %q: %w", record[colCreatedAt], err)
	}

	counterparty := uuid.Nil
	if record[colCounterparty] != "" {
		counterparty, err = uuid.Parse(record[colCounterparty])
		if err != nil {
			return model.TransactionRecord{}, fmt.Errorf("parsing counterparty %q: %w", record[colCounterparty], err)
		}
	}

	return model.TransactionRecord{
		ID:           id,
		AccountID:    accountID,
		Type:         model.TransactionType(record[colType]),
		Amount:       amount,
		Counterparty: counterparty,
		Description:  record[colDescription],
		BalanceAfter: balanceAfter,
		CreatedAt:    createdAt,
	}, nil
}

// Write writes a statement (header plus records) to w.
func Write(w io.Writer, records []model.TransactionRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(MarshalRecord(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// Read reads a statement file from r.
func Read(r io.Reader) ([]model.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Skip header row.
	var records []model.TransactionRecord
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
