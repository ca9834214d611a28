package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialectSelectsDriver(t *testing.T) {
	for _, kind := range []string{"postgres", "mysql", "sqlite", " SQLite "} {
		dialector, err := Dialect(Config{Type: kind, Name: "monetization"})
		require.NoError(t, err, kind)
		assert.NotNil(t, dialector)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestSqlitePath(t *testing.T) {
	assert.Equal(t, "monetization.db", sqlitePath(""))
	assert.Equal(t, "billing.db", sqlitePath("billing"))
	assert.Equal(t, "file:x?mode=memory", sqlitePath("file:x?mode=memory"))
	assert.Equal(t, ":memory:", sqlitePath(":memory:"))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: local_prices.id")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
	assert.False(t, IsDuplicateKeyErr(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("find: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(nil))
}
