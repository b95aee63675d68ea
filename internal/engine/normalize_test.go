package engine

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickledger/importer/internal/store"
)

var customerHeader = []string{"Customer ID", "Customer", "Email"}

func TestNormalize_Customer(t *testing.T) {
	def := mustDef(t, store.KindCustomer)

	rec, err := Normalize(row(2, customerHeader, "C-001", "Acme CO., Inc.", "billing@acme.test"), def)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if rec.Kind != store.KindCustomer {
		t.Errorf("Kind = %s, want customer", rec.Kind)
	}
	if rec.Line != 2 {
		t.Errorf("Line = %d, want 2", rec.Line)
	}
	if rec.ExternalID != "C-001" {
		t.Errorf("ExternalID = %q, want C-001", rec.ExternalID)
	}
	if rec.DisplayName != "Acme CO., Inc." {
		t.Errorf("DisplayName = %q", rec.DisplayName)
	}
	if rec.NormalizedName != "acme co inc" {
		t.Errorf("NormalizedName = %q, want %q", rec.NormalizedName, "acme co inc")
	}
	if rec.Attrs["email"] != "billing@acme.test" {
		t.Errorf("Attrs[email] = %q", rec.Attrs["email"])
	}
}

func TestNormalize_Invoice(t *testing.T) {
	def := mustDef(t, store.KindInvoice)
	header := []string{"Invoice No", "Customer", "Invoice Date", "Amount", "Terms"}

	rec, err := Normalize(row(3, header, "INV-100", "Acme Co", "01/15/2025", "$1,250.00", "Net 30"), def)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if rec.DisplayName != "INV-100" {
		t.Errorf("DisplayName = %q", rec.DisplayName)
	}
	if rec.CustomerName != "Acme Co" {
		t.Errorf("CustomerName = %q", rec.CustomerName)
	}
	want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if !rec.TxnDate.Equal(want) {
		t.Errorf("TxnDate = %v, want %v", rec.TxnDate, want)
	}
	if !rec.Amount.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("Amount = %s, want 1250", rec.Amount)
	}
	if rec.Attrs["terms"] != "Net 30" {
		t.Errorf("Attrs[terms] = %q", rec.Attrs["terms"])
	}
}

func TestNormalize_AliasFallback(t *testing.T) {
	def := mustDef(t, store.KindCustomer)

	// First alias column exists but is empty; the second alias carries the
	// value.
	header := []string{"Customer", "Customer Name"}
	rec, err := Normalize(row(2, header, "", "Acme Co"), def)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if rec.DisplayName != "Acme Co" {
		t.Errorf("DisplayName = %q, want Acme Co", rec.DisplayName)
	}
}

func TestNormalize_Errors(t *testing.T) {
	customerDef := mustDef(t, store.KindCustomer)
	invoiceDef := mustDef(t, store.KindInvoice)

	tests := []struct {
		name      string
		row       SourceRow
		def       string
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required column",
			row:       row(2, []string{"Customer ID"}, "C-001"),
			def:       "customer",
			wantField: "display_name",
			wantMsg:   "missing required column",
		},
		{
			name:      "empty required field",
			row:       row(4, customerHeader, "C-001", "", ""),
			def:       "customer",
			wantField: "display_name",
			wantMsg:   "required field is empty",
		},
		{
			name:      "invalid date",
			row:       row(5, invoiceHeader, "INV-1", "Acme Co", "someday", "10.00"),
			def:       "invoice",
			wantField: "txn_date",
			wantMsg:   "invalid date",
		},
		{
			name:      "invalid amount",
			row:       row(6, invoiceHeader, "INV-1", "Acme Co", "2025-01-15", "ten dollars"),
			def:       "invoice",
			wantField: "amount",
			wantMsg:   "invalid amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := customerDef
			if tt.def == "invoice" {
				def = invoiceDef
			}

			_, err := Normalize(tt.row, def)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Normalize error = %v, want *ValidationError", err)
			}
			if ve.Line != tt.row.Line {
				t.Errorf("Line = %d, want %d", ve.Line, tt.row.Line)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if !strings.Contains(ve.Msg, tt.wantMsg) {
				t.Errorf("Msg = %q, want it to contain %q", ve.Msg, tt.wantMsg)
			}
		})
	}
}

func TestNormalize_OptionalFieldsAbsent(t *testing.T) {
	def := mustDef(t, store.KindCustomer)

	// A file carrying only the name column is valid: external id and attrs
	// are all optional.
	rec, err := Normalize(row(2, []string{"Customer"}, "Acme Co"), def)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if rec.ExternalID != "" {
		t.Errorf("ExternalID = %q, want empty", rec.ExternalID)
	}
	if len(rec.Attrs) != 0 {
		t.Errorf("Attrs = %v, want empty", rec.Attrs)
	}
}
