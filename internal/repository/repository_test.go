package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

var addr = common.HexToAddress("0x00000000000000000000000000000000000000c4")

func TestProfileUpsertAndLookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewProfileRepo(db)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs(addr.Hex(), "ipfs://UserMetadata", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Upsert(ctx, model.User{Address: addr, MetadataURI: "ipfs://UserMetadata", UpdatedAt: now}))

	mock.ExpectQuery("SELECT address,metadata_uri,updated_at FROM user_profiles").
		WithArgs(addr.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"address", "metadata_uri", "updated_at"}).
			AddRow(addr.Hex(), "ipfs://UserMetadata", now))
	u, err := repo.Lookup(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, addr, u.Address)
	assert.Equal(t, "ipfs://UserMetadata", u.MetadataURI)

	mock.ExpectQuery("SELECT address,metadata_uri,updated_at FROM user_profiles").
		WithArgs(addr.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"address", "metadata_uri", "updated_at"}))
	_, err = repo.Lookup(ctx, addr)
	assert.ErrorIs(t, err, model.ErrUserNotRegistered)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalAppendDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewJournalRepo(db)
	entry := JournalEntry{ID: "a", Kind: "ticket_purchased", Actor: addr.Hex(), Currency: "stable", Amount: "100", Fee: "10", Quantity: 1}

	mock.ExpectExec("INSERT INTO activity_journal").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Append(context.Background(), entry))

	mock.ExpectExec("INSERT INTO activity_journal").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.ErrorIs(t, repo.Append(context.Background(), entry), ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalListByEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewJournalRepo(db)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "kind", "event_id", "tier", "actor", "currency", "amount", "fee", "quantity", "occurred_at"}
	mock.ExpectQuery("FROM activity_journal WHERE event_id=").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b", "funds_withdrawn", 3, 0, addr.Hex(), "native", "500", "0", 0, now).
			AddRow("a", "ticket_purchased", 3, 1, addr.Hex(), "native", "1000", "100", 1, now))

	entries, err := repo.ListByEvent(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "funds_withdrawn", entries[0].Kind)
	assert.Equal(t, uint32(1), entries[1].Tier)
	assert.Equal(t, "100", entries[1].Fee)
	assert.NoError(t, mock.ExpectationsWereMet())
}
