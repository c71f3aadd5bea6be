// SPDX-License-Identifier: EPL-2.0

package swap

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mixpreview/audio"
)

func TestStore_CreateLookupRelease(t *testing.T) {
	t.Parallel()

	st := NewStore()
	res := st.Create(audio.Encoded{Data: []byte("abc"), Format: audio.FormatOGG})

	assert.True(t, strings.HasPrefix(res.Ref(), "blob:"))
	assert.Equal(t, audio.FormatOGG, res.Format())
	assert.Equal(t, []byte("abc"), res.Bytes())
	assert.Equal(t, 3, res.Size())

	got, ok := st.Lookup(res.Ref())
	require.True(t, ok)
	assert.Same(t, res, got)

	require.NoError(t, res.Release())
	assert.True(t, res.Released())
	assert.Nil(t, res.Bytes())
	assert.ErrorIs(t, res.Release(), ErrReleased)

	_, ok = st.Lookup(res.Ref())
	assert.False(t, ok)

	assert.Equal(t, StoreStats{Created: 1, Released: 1, Live: 0}, st.Stats())
}

func TestStore_UniqueRefs(t *testing.T) {
	t.Parallel()

	st := NewStore()
	seen := make(map[string]bool)
	for range 100 {
		ref := st.Create(audio.Encoded{Data: []byte{1}, Format: audio.FormatWAV}).Ref()
		assert.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}
	assert.Equal(t, 100, st.Stats().Live)
}

func TestResource_ConcurrentRelease(t *testing.T) {
	t.Parallel()

	st := NewStore()
	res := st.Create(audio.Encoded{Data: []byte{1}, Format: audio.FormatWAV})

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for range 32 {
		wg.Go(func() {
			if res.Release() == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, oks)
	assert.Equal(t, int64(1), st.Stats().Released)
}

func TestResource_DecodedCache(t *testing.T) {
	t.Parallel()

	res := NewStore().Create(mix("A"))
	assert.Nil(t, res.Decoded())

	res.SetDecoded("pcm")
	assert.Equal(t, "pcm", res.Decoded())

	require.NoError(t, res.Release())
	assert.Nil(t, res.Decoded(), "release drops the cache")

	res.SetDecoded("late")
	assert.Nil(t, res.Decoded(), "released resources cache nothing")
}
