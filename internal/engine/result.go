package engine

import (
	"encoding/json"

	"dynquery/internal/queryspec"
)

// Result is the outcome of one query. Exactly one of Items, Count or Page is
// meaningful, as selected by Mode.
type Result[T any] struct {
	Mode  queryspec.ModeKind
	Count uint64
	Items []T
	Page  *Page[T]
}

// Page is one page of a paged query.
type Page[T any] struct {
	Total        uint64 `json:"total"`
	TotalPages   uint64 `json:"totalPages"`
	ItemsPerPage uint64 `json:"itemsPerPage"`
	PageIndex    uint64 `json:"pageIndex"`
	Items        []T    `json:"items"`
}

func newPage[T any](total uint64, mode queryspec.Mode, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Total:        total,
		TotalPages:   totalPages(total, mode.ItemsPerPage),
		ItemsPerPage: mode.ItemsPerPage,
		PageIndex:    mode.PageIndex,
		Items:        items,
	}
}

// totalPages is ceil(total / perPage).
func totalPages(total, perPage uint64) uint64 {
	if perPage == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// MarshalJSON encodes the field selected by Mode next to the mode name.
func (r *Result[T]) MarshalJSON() ([]byte, error) {
	mode := r.Mode.String()
	switch r.Mode {
	case queryspec.KindCount:
		return json.Marshal(struct {
			Mode  string `json:"mode"`
			Count uint64 `json:"count"`
		}{mode, r.Count})
	case queryspec.KindPaging:
		return json.Marshal(struct {
			Mode string   `json:"mode"`
			Page *Page[T] `json:"page"`
		}{mode, r.Page})
	default:
		items := r.Items
		if items == nil {
			items = []T{}
		}
		return json.Marshal(struct {
			Mode  string `json:"mode"`
			Items []T    `json:"items"`
		}{mode, items})
	}
}

func convertResult[T any](r *Result[any]) (*Result[*T], error) {
	out := &Result[*T]{Mode: r.Mode, Count: r.Count}
	if r.Items != nil {
		items, err := asItems[T](r.Items)
		if err != nil {
			return nil, err
		}
		out.Items = items
	}
	if r.Page != nil {
		items, err := asItems[T](r.Page.Items)
		if err != nil {
			return nil, err
		}
		out.Page = &Page[*T]{
			Total:        r.Page.Total,
			TotalPages:   r.Page.TotalPages,
			ItemsPerPage: r.Page.ItemsPerPage,
			PageIndex:    r.Page.PageIndex,
			Items:        items,
		}
	}
	return out, nil
}
