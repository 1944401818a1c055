// Package queryspec models a client's dynamic query request: the selected
// fields, a filter predicate tree, the sort order and the result mode.
package queryspec

import (
	"fmt"
	"math"

	"dynquery/internal/queryerr"
)

// QuerySpec describes one dynamic query. It is created per request and not shared.
type QuerySpec struct {
	// Fields are dotted property paths. Empty selects every directly mapped column.
	Fields []string
	// Filter is the predicate tree root; nil means no filtering.
	Filter Predicate
	// OrderBy is applied in order; empty leaves the result unordered.
	OrderBy []Order
	Mode    Mode
}

// Order sorts by one field. The zero value sorts ascending.
type Order struct {
	Field      string
	Descending bool
}

// Asc sorts field ascending.
func Asc(field string) Order { return Order{Field: field} }

// Desc sorts field descending.
func Desc(field string) Order { return Order{Field: field, Descending: true} }

// ModeKind selects the shape of a query result.
type ModeKind int

const (
	// KindItems returns every matching DTO.
	KindItems ModeKind = iota
	// KindCount returns only the number of matching rows.
	KindCount
	// KindPaging returns one page of DTOs plus the total.
	KindPaging
)

func (k ModeKind) String() string {
	switch k {
	case KindItems:
		return "items"
	case KindCount:
		return "count"
	case KindPaging:
		return "paging"
	default:
		return "unknown"
	}
}

// Mode is the result mode of a query. The zero value is Items.
type Mode struct {
	Kind         ModeKind
	PageIndex    uint64
	ItemsPerPage uint64
}

// Items returns the list mode.
func Items() Mode { return Mode{Kind: KindItems} }

// Count returns the count-only mode.
func Count() Mode { return Mode{Kind: KindCount} }

// Paging returns a paging mode. Both page index (1-based) and page size must be at least 1.
func Paging(pageIndex, itemsPerPage uint64) (Mode, error) {
	m := Mode{Kind: KindPaging, PageIndex: pageIndex, ItemsPerPage: itemsPerPage}
	if err := m.Validate(); err != nil {
		return Mode{}, err
	}
	return m, nil
}

// MustPaging is like Paging but panics on invalid arguments.
func MustPaging(pageIndex, itemsPerPage uint64) Mode {
	m, err := Paging(pageIndex, itemsPerPage)
	if err != nil {
		panic(err)
	}
	return m
}

// Validate checks the paging arguments.
func (m Mode) Validate() error {
	switch m.Kind {
	case KindItems, KindCount:
		return nil
	case KindPaging:
		if m.PageIndex < 1 {
			return queryerr.BadValuef("page", m.PageIndex, "page index must be at least 1")
		}
		if m.ItemsPerPage < 1 {
			return queryerr.BadValuef("itemsPerPage", m.ItemsPerPage, "items per page must be at least 1")
		}
		// LIMIT and OFFSET are rendered as signed 64-bit literals.
		if m.ItemsPerPage > math.MaxInt64 {
			return queryerr.BadValuef("itemsPerPage", m.ItemsPerPage, "items per page is too large")
		}
		if m.PageIndex-1 > math.MaxInt64/m.ItemsPerPage {
			return queryerr.BadValuef("page", m.PageIndex, "page index is too large for %d items per page", m.ItemsPerPage)
		}
		return nil
	default:
		return queryerr.BadValuef("mode", int(m.Kind), "unknown mode")
	}
}

// Offset returns the number of rows skipped before the page.
func (m Mode) Offset() uint64 {
	if m.Kind != KindPaging || m.PageIndex == 0 {
		return 0
	}
	return m.ItemsPerPage * (m.PageIndex - 1)
}

func (m Mode) String() string {
	if m.Kind == KindPaging {
		return fmt.Sprintf("paging(%d,%d)", m.PageIndex, m.ItemsPerPage)
	}
	return m.Kind.String()
}

// Validate checks the filter tree, the sort fields and the mode.
// Field existence is checked later against a mapping.
func (s QuerySpec) Validate() error {
	for _, f := range s.Fields {
		if f == "" {
			return queryerr.BadField("", "selected field is empty")
		}
	}
	for _, o := range s.OrderBy {
		if o.Field == "" {
			return queryerr.BadField("", "order field is empty")
		}
	}
	if err := Validate(s.Filter); err != nil {
		return err
	}
	return s.Mode.Validate()
}
