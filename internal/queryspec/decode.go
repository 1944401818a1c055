package queryspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"dynquery/internal/queryerr"
)

// wireSpec is the JSON form of a QuerySpec:
//
//	{
//	  "fields": ["name", "vendor.name"],
//	  "filter": {"and": [{"field": "name", "op": "eq", "value": "fanpoll"},
//	                     {"or": [{"field": "price", "op": "gt", "value": 100}]}]},
//	  "orderBy": [{"field": "price", "desc": true}],
//	  "mode": "paging", "page": 1, "itemsPerPage": 20
//	}
type wireSpec struct {
	Fields       []string       `json:"fields"`
	Filter       *wirePredicate `json:"filter"`
	OrderBy      []wireOrder    `json:"orderBy"`
	Mode         string         `json:"mode"`
	Page         uint64         `json:"page"`
	ItemsPerPage uint64         `json:"itemsPerPage"`
}

type wirePredicate struct {
	Field string          `json:"field"`
	Op    Operator        `json:"op"`
	Value any             `json:"value"`
	And   []wirePredicate `json:"and"`
	Or    []wirePredicate `json:"or"`
}

type wireOrder struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Decode reads one JSON query specification from r.
// Numbers are kept as json.Number so integer values survive intact.
func Decode(r io.Reader) (QuerySpec, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var w wireSpec
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return QuerySpec{}, queryerr.Malformed(errors.New("empty query document"))
		}
		return QuerySpec{}, queryerr.Malformed(err)
	}
	if dec.More() {
		return QuerySpec{}, queryerr.Malformed(errors.New("trailing data after query document"))
	}
	return w.spec()
}

// Parse decodes a JSON query specification.
func Parse(data []byte) (QuerySpec, error) {
	return Decode(bytes.NewReader(data))
}

func (w wireSpec) spec() (QuerySpec, error) {
	spec := QuerySpec{Fields: w.Fields}

	if w.Filter != nil {
		p, err := w.Filter.predicate()
		if err != nil {
			return QuerySpec{}, err
		}
		spec.Filter = p
	}

	for _, o := range w.OrderBy {
		spec.OrderBy = append(spec.OrderBy, Order{Field: o.Field, Descending: o.Desc})
	}

	switch strings.ToLower(w.Mode) {
	case "", "items":
		spec.Mode = Items()
	case "count":
		spec.Mode = Count()
	case "paging":
		m, err := Paging(w.Page, w.ItemsPerPage)
		if err != nil {
			return QuerySpec{}, err
		}
		spec.Mode = m
	default:
		return QuerySpec{}, queryerr.BadValuef("mode", w.Mode, "unknown mode %q", w.Mode)
	}

	if err := spec.Validate(); err != nil {
		return QuerySpec{}, err
	}
	return spec, nil
}

func (w wirePredicate) predicate() (Predicate, error) {
	shapes := 0
	if w.Field != "" || w.Op != "" {
		shapes++
	}
	if w.And != nil {
		shapes++
	}
	if w.Or != nil {
		shapes++
	}
	if shapes != 1 {
		return nil, queryerr.Malformed(fmt.Errorf("filter node must be exactly one of a condition, \"and\" or \"or\""))
	}

	if w.And != nil || w.Or != nil {
		nodes := w.And
		if w.Or != nil {
			nodes = w.Or
		}
		children := make([]Predicate, 0, len(nodes))
		for _, n := range nodes {
			child, err := n.predicate()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if w.And != nil {
			return And(children...)
		}
		return Or(children...)
	}

	return Cond(w.Field, Operator(strings.ToLower(string(w.Op))), w.Value)
}
