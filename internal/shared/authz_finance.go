package shared

// Accounting and reporting permissions declared for RBAC.
const (
	PermAccountView     = "view_accounts"
	PermAccountEdit     = "edit_account"
	PermTransactionView = "view_transactions"
	PermTransactionAdd  = "add_transaction"
	PermExpenseView     = "view_expenses"
	PermExpenseAdd      = "add_expense"

	PermReportView   = "view_reports"
	PermReportExport = "export_reports"
)

// AccountingScopes lists all permissions related to the accounting module.
func AccountingScopes() []string {
	return []string{
		PermAccountView,
		PermAccountEdit,
		PermTransactionView,
		PermTransactionAdd,
		PermExpenseView,
		PermExpenseAdd,
	}
}

// ReportScopes lists permissions of the reports module.
func ReportScopes() []string {
	return []string{
		PermReportView,
		PermReportExport,
	}
}
