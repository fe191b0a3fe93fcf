package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_DefaultsToIdle(t *testing.T) {
	s := NewStore()
	require.Equal(t, StateIdle, s.Get(Key{UserID: 1, ChatID: 1}))
}

func TestStore_SetAndClear(t *testing.T) {
	s := NewStore()
	key := Key{UserID: 1, ChatID: 10}

	s.Set(key, StateAwaitingCalories)
	require.Equal(t, StateAwaitingCalories, s.Get(key))
	require.Equal(t, 1, s.Len())

	s.Clear(key)
	require.Equal(t, StateIdle, s.Get(key))
	require.Equal(t, 0, s.Len())
}

func TestStore_SetIdleDropsEntry(t *testing.T) {
	s := NewStore()
	key := Key{UserID: 1, ChatID: 10}

	s.Set(key, StateAwaitingFoodText)
	s.Set(key, StateIdle)
	require.Equal(t, 0, s.Len())
}

func TestStore_KeysAreIsolated(t *testing.T) {
	s := NewStore()
	a := Key{UserID: 1, ChatID: 1}
	b := Key{UserID: 2, ChatID: 2}
	sameUserOtherChat := Key{UserID: 1, ChatID: 99}

	s.Set(a, StateAwaitingCalories)

	require.Equal(t, StateAwaitingCalories, s.Get(a))
	require.Equal(t, StateIdle, s.Get(b))
	require.Equal(t, StateIdle, s.Get(sameUserOtherChat))
}

func TestStore_ConcurrentUsers(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			key := Key{UserID: id, ChatID: id}
			s.Set(key, StateAwaitingFoodText)
			s.Set(key, StateAwaitingCalories)
		}(i)
	}
	wg.Wait()

	for i := int64(0); i < 50; i++ {
		require.Equal(t, StateAwaitingCalories, s.Get(Key{UserID: i, ChatID: i}))
	}
}
