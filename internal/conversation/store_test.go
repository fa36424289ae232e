package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exchangeN(n int) Exchange {
	return Exchange{
		ID:                fmt.Sprintf("ex-%d", n),
		Timestamp:         time.Date(2026, 2, 15, 9, n, 0, 0, time.UTC),
		UserMessage:       fmt.Sprintf("message %d", n),
		AssistantResponse: fmt.Sprintf("answer %d", n),
	}
}

func ids(exchanges []Exchange) []string {
	return lo.Map(exchanges, func(e Exchange, _ int) string { return e.ID })
}

func TestStoreEvictsOldestBeyondCapacity(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	for i := 1; i <= 12; i++ {
		store.Append("u1", exchangeN(i))
	}

	require.Equal(t, 10, store.Len("u1"))
	got := store.RecentContext("u1", 10)
	assert.Equal(t, []string{
		"ex-3", "ex-4", "ex-5", "ex-6", "ex-7",
		"ex-8", "ex-9", "ex-10", "ex-11", "ex-12",
	}, ids(got))
}

func TestStoreRecentContextWindow(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	for i := 1; i <= 7; i++ {
		store.Append("u1", exchangeN(i))
	}

	assert.Equal(t, []string{"ex-3", "ex-4", "ex-5", "ex-6", "ex-7"}, ids(store.RecentContext("u1", 5)))
	assert.Len(t, store.RecentContext("u1", 50), 7)
	assert.Empty(t, store.RecentContext("u1", 0))
	assert.Empty(t, store.RecentContext("u1", -3))
}

func TestStoreShortHistoryReturnsWhatExists(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	store.Append("u1", exchangeN(1))
	store.Append("u1", exchangeN(2))

	assert.Equal(t, []string{"ex-1", "ex-2"}, ids(store.RecentContext("u1", 5)))
}

func TestStoreUnknownUserIsEmpty(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	got := store.RecentContext("nobody", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, store.Len("nobody"))
	assert.Equal(t, 0, store.Users())
}

func TestStoreKeepsUsersApart(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	store.Append("u1", exchangeN(1))
	store.Append("u2", exchangeN(2))
	store.Append("u1", exchangeN(3))

	assert.Equal(t, []string{"ex-1", "ex-3"}, ids(store.RecentContext("u1", 5)))
	assert.Equal(t, []string{"ex-2"}, ids(store.RecentContext("u2", 5)))
	assert.Equal(t, 2, store.Users())
}

func TestStoreRecentContextReturnsCopies(t *testing.T) {
	t.Parallel()

	store := NewStore(3)
	store.Append("u1", exchangeN(1))

	got := store.RecentContext("u1", 1)
	got[0].AssistantResponse = "tampered"

	assert.Equal(t, "answer 1", store.RecentContext("u1", 1)[0].AssistantResponse)
}

func TestStoreDefaultsCapacity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultCapacity, NewStore(0).Capacity())
	assert.Equal(t, 4, NewStore(4).Capacity())
}

func TestStoreConcurrentUsers(t *testing.T) {
	t.Parallel()

	store := NewStore(10)
	const users = 8
	const perUser = 25

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("user-%d", u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 1; i <= perUser; i++ {
				store.Append(userID, Exchange{ID: fmt.Sprintf("%s-%d", userID, i)})
				_ = store.RecentContext(userID, 5)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, users, store.Users())
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("user-%d", u)
		got := store.RecentContext(userID, 10)
		require.Len(t, got, 10)
		for i, exchange := range got {
			assert.Equal(t, fmt.Sprintf("%s-%d", userID, perUser-9+i), exchange.ID)
		}
	}
}
