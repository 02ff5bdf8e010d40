package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	type entry struct {
		Eligible bool   `json:"eligible"`
		Reason   string `json:"reason"`
	}
	require.NoError(t, client.SetJSON(ctx, "k", entry{Eligible: true, Reason: "none"}, time.Minute))

	var got entry
	require.NoError(t, client.GetJSON(ctx, "k", &got))
	assert.Equal(t, entry{Eligible: true, Reason: "none"}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, client.GetJSON(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisClient_DecodeFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	require.NoError(t, mr.Set("bad", "{not json"))
	var out map[string]interface{}
	err := client.GetJSON(context.Background(), "bad", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestPostgresClient_WithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := NewPostgresFromDB(db)
	defer client.Close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE checkout_attempts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = client.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE checkout_attempts SET risk = true")
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = client.WithTx(ctx, func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
