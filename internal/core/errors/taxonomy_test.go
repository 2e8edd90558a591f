package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_WrapsOnce(t *testing.T) {
	require.NoError(t, Storage("select", nil))

	base := stderrors.New("connection reset")
	err := Storage("select hudcache", base)
	require.True(t, IsStorage(err))
	require.ErrorIs(t, err, base)

	again := Storage("flush", err)
	var se *StorageError
	require.True(t, stderrors.As(again, &se))
	assert.Equal(t, "select hudcache", se.Op)
	assert.Contains(t, again.Error(), "flush: storage: select hudcache")
}

func TestTaxonomy_Classification(t *testing.T) {
	consistency := fmt.Errorf("resolve: %w", &ConsistencyError{Dimension: "tourneyType", ID: 7, Reason: "buyin differs"})
	config := fmt.Errorf("load: %w", &ConfigurationError{Field: "import.heroes", Reason: "empty"})

	assert.True(t, IsConsistency(consistency))
	assert.False(t, IsStorage(consistency))
	assert.True(t, IsConfiguration(config))
	assert.False(t, IsConsistency(config))
	assert.Equal(t, "consistency: tourneyType 7: buyin differs", stderrors.Unwrap(consistency).Error())
}
