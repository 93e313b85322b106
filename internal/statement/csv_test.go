package statement

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teller-dev/teller/internal/model"
)

func sampleRecords() []model.TransactionRecord {
	accountID := uuid.New()
	counterparty := uuid.New()
	now := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	return []model.TransactionRecord{
		{
			ID:           uuid.New(),
			AccountID:    accountID,
			Type:         model.TypeTransferOut,
			Amount:       decimal.RequireFromString("1500.00"),
			Counterparty: counterparty,
			Description:  "invoice 42, net 30",
			BalanceAfter: decimal.RequireFromString("3500.00"),
			CreatedAt:    now,
		},
		{
			ID:           uuid.New(),
			AccountID:    accountID,
			Type:         model.TypeDeposit,
			Amount:       decimal.RequireFromString("5000.00"),
			Description:  "initial deposit",
			BalanceAfter: decimal.RequireFromString("5000.00"),
			CreatedAt:    now.Add(-time.Hour),
		},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	records := sampleRecords()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, Header, lines[0])

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0].ID, got[0].ID)
	assert.Equal(t, records[0].Counterparty, got[0].Counterparty)
	assert.True(t, got[0].Amount.Equal(records[0].Amount))
	assert.Equal(t, "invoice 42, net 30", got[0].Description)
	assert.Equal(t, uuid.Nil, got[1].Counterparty)
	assert.True(t, got[1].CreatedAt.Equal(records[1].CreatedAt))
}

func TestRead_Empty(t *testing.T) {
	got, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnmarshalRecord_BadFields(t *testing.T) {
	rec := sampleRecords()[0]
	row := MarshalRecord(rec)

	bad := make([]string, len(row))
	copy(bad, row)
	bad[colAmount] = "not-a-number"
	_, err := UnmarshalRecord(bad)
	assert.ErrorContains(t, err, "parsing amount")

	copy(bad, row)
	bad[colCounterparty] = "xyz"
	_, err = UnmarshalRecord(bad)
	assert.ErrorContains(t, err, "parsing counterparty")

	_, err = UnmarshalRecord(row[:3])
	assert.ErrorContains(t, err, "expected 8 fields")
}
