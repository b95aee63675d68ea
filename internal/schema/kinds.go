package schema

import "github.com/quickledger/importer/internal/store"

// Default header names follow the accounting platform's CSV exports. The
// platform has renamed columns across report versions, hence the alias lists.

func init() {
	registerCustomers()
	registerInvoices()
	registerReceipts()
}

func registerCustomers() {
	Register(Definition{
		Kind:      store.KindCustomer,
		Label:     "Customers",
		Directory: "Customers",
		Fields: []FieldSpec{
			{Field: "external_id", Aliases: []string{"Customer ID", "Id"}, Type: FieldText, Role: RoleExternalID},
			{Field: "display_name", Aliases: []string{"Customer", "Customer Name", "Display Name"}, Type: FieldText, Role: RoleDisplayName, Required: true},
			{Field: "company", Aliases: []string{"Company", "Company Name"}, Type: FieldText, Role: RoleAttr},
			{Field: "email", Aliases: []string{"Email", "Main Email"}, Type: FieldText, Role: RoleAttr},
			{Field: "phone", Aliases: []string{"Phone", "Main Phone", "Phone Numbers"}, Type: FieldText, Role: RoleAttr},
		},
	})
}

func registerInvoices() {
	Register(Definition{
		Kind:      store.KindInvoice,
		Label:     "Invoices",
		Directory: "Invoices",
		Fields: []FieldSpec{
			{Field: "external_id", Aliases: []string{"Invoice ID", "Txn ID"}, Type: FieldText, Role: RoleExternalID},
			{Field: "display_name", Aliases: []string{"Invoice No", "Invoice Number", "Num"}, Type: FieldText, Role: RoleDisplayName, Required: true},
			{Field: "customer_external_id", Aliases: []string{"Customer ID"}, Type: FieldText, Role: RoleCustomerExternalID},
			{Field: "customer_name", Aliases: []string{"Customer", "Customer Name"}, Type: FieldText, Role: RoleCustomerName, Required: true},
			{Field: "txn_date", Aliases: []string{"Invoice Date", "Date", "Txn Date"}, Type: FieldDate, Role: RoleTxnDate, Required: true},
			{Field: "amount", Aliases: []string{"Amount", "Total", "Total Amount"}, Type: FieldAmount, Role: RoleAmount, Required: true},
			{Field: "due_date", Aliases: []string{"Due Date"}, Type: FieldText, Role: RoleAttr},
			{Field: "terms", Aliases: []string{"Terms"}, Type: FieldText, Role: RoleAttr},
			{Field: "status", Aliases: []string{"Status", "Open Balance Status"}, Type: FieldText, Role: RoleAttr},
		},
	})
}

func registerReceipts() {
	Register(Definition{
		Kind:      store.KindReceipt,
		Label:     "Sales Receipts",
		Directory: "SalesReceipts",
		Fields: []FieldSpec{
			{Field: "external_id", Aliases: []string{"Receipt ID", "Txn ID"}, Type: FieldText, Role: RoleExternalID},
			{Field: "display_name", Aliases: []string{"Sales Receipt No", "Receipt No", "Num"}, Type: FieldText, Role: RoleDisplayName, Required: true},
			{Field: "customer_external_id", Aliases: []string{"Customer ID"}, Type: FieldText, Role: RoleCustomerExternalID},
			{Field: "customer_name", Aliases: []string{"Customer", "Customer Name"}, Type: FieldText, Role: RoleCustomerName, Required: true},
			{Field: "txn_date", Aliases: []string{"Sale Date", "Date", "Txn Date"}, Type: FieldDate, Role: RoleTxnDate, Required: true},
			{Field: "amount", Aliases: []string{"Amount", "Total", "Total Amount"}, Type: FieldAmount, Role: RoleAmount, Required: true},
			{Field: "payment_method", Aliases: []string{"Payment Method", "Method"}, Type: FieldText, Role: RoleAttr},
			{Field: "memo", Aliases: []string{"Memo", "Memo/Description"}, Type: FieldText, Role: RoleAttr},
		},
	})
}
