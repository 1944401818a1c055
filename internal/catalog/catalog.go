// Package catalog declares the sample DTOs served by the dynquery CLI: products
// with their vendor and tags.
package catalog

import (
	"time"

	"dynquery/internal/mapping"
	"dynquery/internal/sqltype"
)

// ProductTypes are the declared values of the products.type enum.
var ProductTypes = []string{"cpu", "memory", "storage", "gpu", "cooling"}

// Vendor sells products.
type Vendor struct {
	ID      int64  `json:"id"`
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
}

// Tag labels products.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Product is the root DTO of the catalog.
type Product struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name,omitempty"`
	Type       string     `json:"type,omitempty"`
	Price      float64    `json:"price,omitempty"`
	SKU        string     `json:"sku,omitempty"`
	InStock    bool       `json:"inStock,omitempty"`
	ReleasedAt *time.Time `json:"releasedAt,omitempty"`
	VendorName string     `json:"vendorName,omitempty"`
	TagCount   int64      `json:"tagCount,omitempty"`
	Vendor     *Vendor    `json:"vendor,omitempty"`
	Tags       []*Tag     `json:"tags,omitempty"`
}

// NewVendorMapping maps Vendor onto the vendors table.
func NewVendorMapping() (*mapping.Mapping, error) {
	return mapping.Define[Vendor]("vendors").
		ColumnSQL("id", "id", "INTEGER", func(v *Vendor) any { return &v.ID }).
		ColumnSQL("name", "name", "VARCHAR(255)", func(v *Vendor) any { return &v.Name }).
		ColumnSQL("country", "country", "VARCHAR(64)", func(v *Vendor) any { return &v.Country }).
		PrimaryKey("id").
		Build()
}

// NewTagMapping maps Tag onto the tags table.
func NewTagMapping() (*mapping.Mapping, error) {
	return mapping.Define[Tag]("tags").
		ColumnSQL("id", "id", "INTEGER", func(t *Tag) any { return &t.ID }).
		ColumnSQL("name", "name", "VARCHAR(64)", func(t *Tag) any { return &t.Name }).
		PrimaryKey("id").
		Build()
}

// NewProductMapping maps Product onto the products table, its vendor through
// vendor_id and its tags through the product_tags link table.
func NewProductMapping(vendors, tags *mapping.Mapping) (*mapping.Mapping, error) {
	b := mapping.Define[Product]("products").
		Field("id", sqltype.Int, func(p *Product) any { return &p.ID }).
		Field("name", sqltype.String, func(p *Product) any { return &p.Name }).
		Enum("type", "type", ProductTypes, false, func(p *Product) any { return &p.Type }).
		ColumnSQL("price", "price", "DOUBLE PRECISION", func(p *Product) any { return &p.Price }).
		Field("sku", sqltype.UUID, func(p *Product) any { return &p.SKU }).
		ColumnSQL("inStock", "in_stock", "BOOLEAN", func(p *Product) any { return &p.InStock }).
		ColumnSQL("releasedAt", "released_at", "TIMESTAMP", func(p *Product) any { return &p.ReleasedAt }).
		ColumnOf("vendorName", "vendors", "name", sqltype.String, func(p *Product) any { return &p.VendorName }).
		Expression("tagCount",
			"SELECT COUNT(*) FROM product_tags pt WHERE pt.product_id = products.id",
			func(p *Product) any { return &p.TagCount }).
		PrimaryKey("id").
		Join(mapping.JoinSpec{Type: mapping.LeftJoin, Table: "vendors", On: "vendor_id", Other: "id"}).
		Join(mapping.JoinSpec{Type: mapping.LeftJoin, Table: "product_tags", On: "id", Other: "product_id"}).
		Join(mapping.JoinSpec{Type: mapping.LeftJoin, Table: "tags", On: "product_tags.tag_id", Other: "id"})

	mapping.HasOne(b, "vendor", vendors, func(p *Product) **Vendor { return &p.Vendor })
	mapping.HasMany(b, "tags", tags, func(p *Product) *[]*Tag { return &p.Tags })
	return b.Build()
}

// Mappings bundles the catalog mappings.
type Mappings struct {
	Vendors  *mapping.Mapping
	Tags     *mapping.Mapping
	Products *mapping.Mapping
}

// Build builds every catalog mapping.
func Build() (Mappings, error) {
	vendors, err := NewVendorMapping()
	if err != nil {
		return Mappings{}, err
	}
	tags, err := NewTagMapping()
	if err != nil {
		return Mappings{}, err
	}
	products, err := NewProductMapping(vendors, tags)
	if err != nil {
		return Mappings{}, err
	}
	return Mappings{Vendors: vendors, Tags: tags, Products: products}, nil
}

// Register builds the catalog mappings and adds them to r.
func Register(r *mapping.Registry) (Mappings, error) {
	ms, err := Build()
	if err != nil {
		return Mappings{}, err
	}
	for _, m := range []*mapping.Mapping{ms.Vendors, ms.Tags, ms.Products} {
		if err := r.Register(m); err != nil {
			return Mappings{}, err
		}
	}
	return ms, nil
}

// MustBuild is like Build but panics on error.
func MustBuild() Mappings {
	ms, err := Build()
	if err != nil {
		panic(err)
	}
	return ms
}
