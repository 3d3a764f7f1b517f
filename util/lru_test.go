package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wkalt/dynconn/util"
)

func TestLRU(t *testing.T) {
	t.Run("simple inserts", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Put(2, "b")
		lru.Put(3, "c")
		assert.Equal(t, []int{3, 2, 1}, lru.Keys())
		assert.Equal(t, 3, lru.Len())
	})
	t.Run("eviction", func(t *testing.T) {
		lru := util.NewLRU[int, string](2)
		lru.Put(1, "a")
		lru.Put(2, "b")
		lru.Put(3, "c")
		assert.Equal(t, []int{3, 2}, lru.Keys())
		_, ok := lru.Get(1)
		assert.False(t, ok)
	})
	t.Run("get moves items to front", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Put(2, "b")
		lru.Put(3, "c")
		v, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "a", v)
		assert.Equal(t, []int{1, 3, 2}, lru.Keys())
	})
	t.Run("overwrite moves item to the front", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Put(2, "b")
		lru.Put(1, "ab")
		v, ok := lru.Get(1)
		assert.True(t, ok)
		assert.Equal(t, "ab", v)
		assert.Equal(t, []int{1, 2}, lru.Keys())
		assert.Equal(t, 2, lru.Len())
	})
	t.Run("reset", func(t *testing.T) {
		lru := util.NewLRU[int, string](100)
		lru.Put(1, "a")
		lru.Reset()
		assert.Equal(t, 0, lru.Len())
		assert.Empty(t, lru.Keys())
	})
	t.Run("capacity below one", func(t *testing.T) {
		lru := util.NewLRU[int, string](0)
		lru.Put(1, "a")
		lru.Put(2, "b")
		assert.Equal(t, []int{2}, lru.Keys())
	})
}
