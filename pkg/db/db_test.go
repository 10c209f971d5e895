package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/royalty/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: withdrawal_requests.id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

func TestIsUndefinedTableErr(t *testing.T) {
	assert.True(t, IsUndefinedTableErr(&pgconn.PgError{Code: "42P01"}))
	assert.True(t, IsUndefinedTableErr(errors.New("no such table: lessons")))
	assert.False(t, IsUndefinedTableErr(nil))
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	require.Error(t, err)

	d, err := Dialect(config.Config{DBType: "postgres", DBHost: "localhost", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

func TestNewTestOpensIsolatedDatabase(t *testing.T) {
	conn, err := NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.Exec("CREATE TABLE probe (id INTEGER)").Error)
	var count int64
	require.NoError(t, conn.Raw("SELECT COUNT(*) FROM probe").Scan(&count).Error)
	assert.Zero(t, count)
}
