package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	locks := newKeyedMutex()
	release, err := locks.Acquire(context.Background(), "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locks.Acquire(context.Background(), "u2")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.Equal(t, 0, locks.size())

	again, err := locks.Acquire(context.Background(), "u1")
	require.NoError(t, err)
	again()
}
