package mapping

import (
	"reflect"
	"sync"
	"testing"

	"dynquery/internal/queryerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	books := bookMapping()
	chapters := chapterMapping()

	require.NoError(t, r.Register(books))
	require.NoError(t, r.Register(chapters))

	err := r.Register(bookMapping())
	assert.True(t, queryerr.IsKind(err, queryerr.KindInvariant))

	r.Seal()
	err = r.Register(authorMapping())
	assert.True(t, queryerr.IsKind(err, queryerr.KindInvariant))

	m, err := For[testBook](r)
	require.NoError(t, err)
	assert.Same(t, books, m)

	_, err = For[testAuthor](r)
	assert.True(t, queryerr.IsKind(err, queryerr.KindInvariant))

	m, ok := r.Lookup(reflect.TypeOf(&testChapter{}))
	require.True(t, ok)
	assert.Same(t, chapters, m)

	m, ok = r.ByName("TESTBOOK")
	require.True(t, ok)
	assert.Same(t, books, m)

	assert.Equal(t, []string{"testBook", "testChapter"}, r.Names())

	m, ok = r.ByTable(books.Table())
	require.True(t, ok)
	assert.Same(t, books, m)

	_, ok = r.ByTable("missing")
	assert.False(t, ok)
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() {
		r.MustRegister(chapterMapping(), chapterMapping())
	})
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(bookMapping())
	r.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := For[testBook](r)
			assert.NoError(t, err)
			assert.Equal(t, "books", m.Table())
		}()
	}
	wg.Wait()
}
