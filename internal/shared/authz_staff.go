package shared

// Staff permissions.
const (
	PermStaffView       = "view_staffs"
	PermStaffAdd        = "add_staff"
	PermStaffEdit       = "edit_staff"
	PermStaffDelete     = "delete_staff"
	PermAttendanceView  = "view_attendance"
	PermPayrollView     = "view_payroll"
	PermPayrollGenerate = "generate_payroll"
)

// StaffScopes lists permissions of the staff module.
func StaffScopes() []string {
	return []string{
		PermStaffView,
		PermStaffAdd,
		PermStaffEdit,
		PermStaffDelete,
		PermAttendanceView,
		PermPayrollView,
		PermPayrollGenerate,
	}
}
