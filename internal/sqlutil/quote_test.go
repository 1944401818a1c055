package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "`users`"},
		{"user_data", "`user_data`"},
		{"select", "`select`"},           // reserved word
		{"first name", "`first name`"},   // space in name
		{"user`data", "`user``data`"},    // backtick in name
		{"a`b`c", "`a``b``c`"},           // multiple backticks
		{"", "``"},                        // empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQuoteDoubleIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", `"users"`},
		{`a"b`, `"a""b"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteDoubleIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteDoubleIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver   string
		expected string
		column   string
	}{
		{"mysql", "mysql", "`products`.`name`"},
		{"", "mysql", "`products`.`name`"},
		{"postgres", "postgres", `"products"."name"`},
		{"sqlite3", "sqlite3", `"products"."name"`},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := DialectFor(tt.driver)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Name != tt.expected {
				t.Errorf("DialectFor(%q).Name = %q, want %q", tt.driver, d.Name, tt.expected)
			}
			if got := d.QualifiedColumn("products", "name"); got != tt.column {
				t.Errorf("QualifiedColumn = %q, want %q", got, tt.column)
			}
		})
	}

	if _, err := DialectFor("oracle"); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
}
