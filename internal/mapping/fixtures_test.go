package mapping

import (
	"time"

	"dynquery/internal/sqltype"
)

type testCountry struct {
	Code string
	Name string
}

type testAuthor struct {
	ID      int64
	Name    string
	Country *testCountry
}

type testChapter struct {
	ID    int64
	Title string
}

type testBook struct {
	ID        int64
	Title     string
	Genre     string
	Published time.Time
	Author    *testAuthor
	Chapters  []*testChapter
	Pages     int64
	Publisher string
}

func countryMapping() *Mapping {
	return Define[testCountry]("countries").
		Field("code", sqltype.String, func(c *testCountry) any { return &c.Code }).
		Field("name", sqltype.String, func(c *testCountry) any { return &c.Name }).
		PrimaryKey("code").
		MustBuild()
}

func authorMapping() *Mapping {
	b := Define[testAuthor]("authors").
		Field("id", sqltype.Int, func(a *testAuthor) any { return &a.ID }).
		Field("name", sqltype.String, func(a *testAuthor) any { return &a.Name }).
		PrimaryKey("id").
		Join(JoinSpec{Type: LeftJoin, Table: "countries", On: "country_code", Other: "code"})
	return HasOne(b, "country", countryMapping(), func(a *testAuthor) **testCountry { return &a.Country }).MustBuild()
}

func chapterMapping() *Mapping {
	return Define[testChapter]("").
		Field("id", sqltype.Int, func(c *testChapter) any { return &c.ID }).
		Field("title", sqltype.String, func(c *testChapter) any { return &c.Title }).
		PrimaryKey("id").
		MustBuild()
}

func bookBuilder() *Builder[testBook] {
	b := Define[testBook]("books").
		Field("id", sqltype.Int, func(b *testBook) any { return &b.ID }).
		Field("title", sqltype.String, func(b *testBook) any { return &b.Title }).
		Enum("genre", "genre", []string{"fiction", "poetry", "essay"}, false, func(b *testBook) any { return &b.Genre }).
		Column("published", "published_at", sqltype.Date, func(b *testBook) any { return &b.Published }).
		ColumnOf("publisher", "publishers", "name", sqltype.String, func(b *testBook) any { return &b.Publisher }).
		Expression("pages", "SELECT SUM(pages) FROM chapters WHERE chapters.book_id = books.id", func(b *testBook) any { return &b.Pages }).
		PrimaryKey("id").
		Join(JoinSpec{Type: LeftJoin, Table: "authors", On: "author_id", Other: "id"}).
		Join(JoinSpec{Type: InnerJoin, Table: "publishers", On: "books.publisher_id", Other: "id"}).
		Join(JoinSpec{Type: LeftJoin, Table: "test_chapters", On: "id", Other: "book_id"})
	HasOne(b, "author", authorMapping(), func(b *testBook) **testAuthor { return &b.Author })
	HasMany(b, "chapters", chapterMapping(), func(b *testBook) *[]*testChapter { return &b.Chapters })
	return b
}

func bookMapping() *Mapping {
	return bookBuilder().MustBuild()
}
