package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// ParseDate Tests
// ============================================================================

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "ISO format",
			input: "2025-01-15",
			want:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "US format",
			input: "01/15/2025",
			want:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "US format single digits",
			input: "1/5/2025",
			want:  time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "dashes",
			input: "01-15-2025",
			want:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "month name",
			input: "Jan 15, 2025",
			want:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "two digit year in the past century",
			input: "1/15/99",
			want:  time.Date(1999, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "not a date",
			input:   "soon",
			wantErr: true,
		},
		{
			name:    "month out of range",
			input:   "13/45/2025",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// ParseAmount Tests
// ============================================================================

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain decimal",
			input: "100.00",
			want:  "100",
		},
		{
			name:  "integer",
			input: "42",
			want:  "42",
		},
		{
			name:  "currency symbol and thousands separator",
			input: "$1,234.56",
			want:  "1234.56",
		},
		{
			name:  "euro symbol",
			input: "€99.95",
			want:  "99.95",
		},
		{
			name:  "accounting negative",
			input: "(123.45)",
			want:  "-123.45",
		},
		{
			name:  "accounting negative with currency",
			input: "($1,000.00)",
			want:  "-1000",
		},
		{
			name:  "explicit negative",
			input: "-5.50",
			want:  "-5.5",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "not a number",
			input:   "invalid",
			wantErr: true,
		},
		{
			name:    "double decimal point",
			input:   "1.2.3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tt.input, err)
			}
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.input, got, want)
			}
		})
	}
}

// ============================================================================
// CleanCell Tests
// ============================================================================

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  hello  ", want: "hello"},
		{name: "excel formula wrapper", input: `="12345"`, want: "12345"},
		{name: "leading equals", input: "=total", want: "total"},
		{name: "surrounding quotes", input: `"Acme"`, want: "Acme"},
		{name: "platform id prefix", input: "quickbooks:987", want: "987"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
