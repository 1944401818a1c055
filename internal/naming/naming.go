package naming

import (
	"strings"
	"unicode"
)

// Namer derives default SQL names for DTO types and properties.
type Namer struct {
	config Config
}

// New creates a Namer with the given configuration
func New(cfg Config) *Namer {
	return &Namer{config: cfg}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig())
}

// TableName converts a DTO type name to a pluralized snake_case table name.
// Example: "ProductVariant" -> "product_variants"
func (n *Namer) TableName(typeName string) string {
	snake := ToSnakeCase(typeName)
	if snake == "" {
		return ""
	}
	idx := strings.LastIndex(snake, "_")
	head, last := snake[:idx+1], snake[idx+1:]
	return head + n.Pluralize(last)
}

// ColumnName converts a DTO property name to a snake_case column name.
// Example: "vendorId" -> "vendor_id"
func (n *Namer) ColumnName(property string) string {
	return ToSnakeCase(property)
}

// ToSnakeCase converts PascalCase or camelCase to snake_case.
// Runs of capitals are treated as one word: "HTTPServer" -> "http_server".
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
