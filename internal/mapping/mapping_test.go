package mapping

import (
	"testing"

	"dynquery/internal/queryerr"
	"dynquery/internal/sqltype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefine_DefaultTableName(t *testing.T) {
	m := chapterMapping()
	assert.Equal(t, "test_chapters", m.Table())
	assert.Equal(t, "testChapter", m.Name())
	assert.IsType(t, &testChapter{}, m.New())
}

func TestBuild_Columns(t *testing.T) {
	m := bookMapping()

	cols := m.Columns()
	require.Len(t, cols, 5)
	assert.Equal(t, Column{Table: "books", Name: "id", Type: sqltype.Int}, cols[0])
	assert.Equal(t, "books.published_at", cols[3].Key())
	assert.Equal(t, Column{Table: "publishers", Name: "name", Type: sqltype.String}, cols[4])
	assert.Equal(t, []string{"fiction", "poetry", "essay"}, cols[2].EnumValues)

	assert.Equal(t, []Column{cols[0]}, m.PrimaryKey())
	assert.Equal(t, []Expression{{Property: "pages", SQL: "SELECT SUM(pages) FROM chapters WHERE chapters.book_id = books.id"}}, m.Expressions())

	many, ok := m.HasMany()
	require.True(t, ok)
	assert.Equal(t, "chapters", many.Name)
	assert.True(t, m.FansOut())
	assert.False(t, authorMapping().FansOut())
	assert.Len(t, m.Nested(), 2)
}

func TestColumnSQL(t *testing.T) {
	m := Define[testBook]("books").
		ColumnSQL("id", "id", "bigint", func(b *testBook) any { return &b.ID }).
		ColumnSQL("title", "title", "VARCHAR(255)", func(b *testBook) any { return &b.Title }).
		ColumnSQL("published", "published_at", "TIMESTAMP WITH TIME ZONE", func(b *testBook) any { return &b.Published }).
		ColumnSQL("pages", "pages", "DECIMAL(10,2)", func(b *testBook) any { return &b.Pages }).
		PrimaryKey("id").
		MustBuild()

	assert.Equal(t, []Column{
		{Table: "books", Name: "id", Type: sqltype.Int},
		{Table: "books", Name: "title", Type: sqltype.String},
		{Table: "books", Name: "published_at", Type: sqltype.Timestamp},
		{Table: "books", Name: "pages", Type: sqltype.Decimal},
	}, m.Columns())
}

func TestBuild_Joins(t *testing.T) {
	m := bookMapping()

	j, ok := m.Join("authors")
	require.True(t, ok)
	assert.Equal(t, "books.author_id", j.On)
	assert.Equal(t, "books", j.OnTable())
	assert.Equal(t, "author_id", j.OnColumn())

	// Joins declared by nested mappings are available to the root.
	j, ok = m.Join("countries")
	require.True(t, ok)
	assert.Equal(t, "authors.country_code", j.On)

	j, ok = m.Join("publishers")
	require.True(t, ok)
	assert.Equal(t, InnerJoin, j.Type)

	_, ok = m.Join("books")
	assert.False(t, ok)
	assert.Len(t, m.Joins(), 4)
}

func TestBuild_Errors(t *testing.T) {
	id := func(b *testBook) any { return &b.ID }
	title := func(b *testBook) any { return &b.Title }

	tests := []struct {
		name    string
		builder func() *Builder[testBook]
		kind    queryerr.Kind
		message string
	}{
		{
			name: "missing primary key",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id)
			},
			kind:    queryerr.KindInvariant,
			message: "no primary key",
		},
		{
			name: "primary key is not a column",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("missing")
			},
			kind:    queryerr.KindInvariant,
			message: `primary key "missing"`,
		},
		{
			name: "duplicate property",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).Field("id", sqltype.String, title).PrimaryKey("id")
			},
			kind:    queryerr.KindInvariant,
			message: "declared twice",
		},
		{
			name: "nil accessor",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, nil).PrimaryKey("id")
			},
			kind:    queryerr.KindInvariant,
			message: "no field accessor",
		},
		{
			name: "accessor returns a value",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, func(b *testBook) any { return b.ID }).PrimaryKey("id")
			},
			kind:    queryerr.KindInvariant,
			message: "must return a pointer",
		},
		{
			name: "self join",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id").
					Join(JoinSpec{Table: "books", On: "parent_id", Other: "id"})
			},
			kind:    queryerr.KindUnsupportedJoin,
			message: "self-join",
		},
		{
			name: "same table twice",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id").
					Join(JoinSpec{Table: "authors", On: "author_id", Other: "id"}).
					Join(JoinSpec{Table: "authors", On: "editor_id", Other: "id"})
			},
			kind:    queryerr.KindUnsupportedJoin,
			message: "joined twice",
		},
		{
			name: "column table without join",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id").
					ColumnOf("publisher", "publishers", "name", sqltype.String, title)
			},
			kind:    queryerr.KindUnsupportedJoin,
			message: `no join declared for table "publishers"`,
		},
		{
			name: "join from unreachable table",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id").
					Join(JoinSpec{Table: "tags", On: "book_tags.tag_id", Other: "id"})
			},
			kind:    queryerr.KindUnsupportedJoin,
			message: "unreachable table",
		},
		{
			name: "nested mapping of another type",
			builder: func() *Builder[testBook] {
				b := Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id")
				return HasOne(b, "author", chapterMapping(), func(b *testBook) **testAuthor { return &b.Author })
			},
			kind:    queryerr.KindInvariant,
			message: "its mapping describes",
		},
		{
			name: "enum declared by SQL type",
			builder: func() *Builder[testBook] {
				return Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id").
					ColumnSQL("genre", "genre", "ENUM('fiction','poetry')", title)
			},
			kind:    queryerr.KindInvariant,
			message: "declare it with Enum",
		},
		{
			name: "two one-to-many properties",
			builder: func() *Builder[testBook] {
				b := Define[testBook]("books").Field("id", sqltype.Int, id).PrimaryKey("id").
					Join(JoinSpec{Table: "test_chapters", On: "id", Other: "book_id"})
				HasMany(b, "chapters", chapterMapping(), func(b *testBook) *[]*testChapter { return &b.Chapters })
				return HasMany(b, "drafts", chapterMapping(), func(b *testBook) *[]*testChapter { return &b.Chapters })
			},
			kind:    queryerr.KindInvariant,
			message: "both one-to-many",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.builder().Build()
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, queryerr.IsKind(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		Define[testBook]("books").MustBuild()
	})
}
