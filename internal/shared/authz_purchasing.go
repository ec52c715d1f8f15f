package shared

// Product, supplier and purchasing permissions.
const (
	PermProductView     = "view_products"
	PermProductAdd      = "add_product"
	PermProductEdit     = "edit_product"
	PermProductDelete   = "delete_product"
	PermCategoryView    = "view_categories"
	PermCategoryEdit    = "edit_category"
	PermSupplierView    = "view_suppliers"
	PermSupplierAdd     = "add_supplier"
	PermSupplierEdit    = "edit_supplier"
	PermSupplierDelete  = "delete_supplier"
	PermPurchaseView    = "view_purchases"
	PermPurchaseAdd     = "add_purchase"
	PermPurchaseEdit    = "edit_purchase"
	PermPurchaseReceive = "receive_purchase"
)

// ProductScopes lists permissions of the products module.
func ProductScopes() []string {
	return []string{
		PermProductView,
		PermProductAdd,
		PermProductEdit,
		PermProductDelete,
		PermCategoryView,
		PermCategoryEdit,
	}
}

// SupplierScopes lists permissions of the suppliers module.
func SupplierScopes() []string {
	return []string{
		PermSupplierView,
		PermSupplierAdd,
		PermSupplierEdit,
		PermSupplierDelete,
	}
}

// PurchaseScopes lists permissions of the purchasing module.
func PurchaseScopes() []string {
	return []string{
		PermPurchaseView,
		PermPurchaseAdd,
		PermPurchaseEdit,
		PermPurchaseReceive,
	}
}
