package shared

// Customer and sales permissions declared for RBAC.
const (
	// Customer permissions
	PermCustomerView   = "view_customers"
	PermCustomerAdd    = "add_customer"
	PermCustomerEdit   = "edit_customer"
	PermCustomerDelete = "delete_customer"

	// Sales order permissions
	PermOrderView   = "view_orders"
	PermOrderAdd    = "add_order"
	PermOrderEdit   = "edit_order"
	PermOrderDelete = "delete_order"

	// Sale return permissions
	PermSaleReturnView = "view_sale_returns"
	PermSaleReturnAdd  = "add_sale_return"
)

// CustomerScopes lists all permissions related to the customers module.
func CustomerScopes() []string {
	return []string{
		PermCustomerView,
		PermCustomerAdd,
		PermCustomerEdit,
		PermCustomerDelete,
	}
}

// SalesScopes lists all permissions related to the sales module.
func SalesScopes() []string {
	return []string{
		PermOrderView,
		PermOrderAdd,
		PermOrderEdit,
		PermOrderDelete,
		PermSaleReturnView,
		PermSaleReturnAdd,
	}
}
