package constants

// Role names yang dikenal sistem.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleTeacher = "teacher"
	RoleDonor   = "donor"
)

// Permission strings. Format: "<resource>:<action>".
const (
	PermClassLogsEditAll   = "class_logs:edit_all"
	PermClassLogsDeleteAll = "class_logs:delete_all"
	PermClassLogsReanalyze = "class_logs:reanalyze"
	PermOrphanagesManage   = "orphanages:manage"
	PermInvoicesGenerate   = "invoices:generate"
	PermDonationsView      = "donations:view"
)

// RolePermissions memetakan role → daftar permission miliknya.
// owner/admin dapat semua; manager operasional; teacher hanya log miliknya
// sendiri (ownership dicek terpisah, bukan lewat permission).
var RolePermissions = map[string][]string{
	RoleOwner: {
		PermClassLogsEditAll, PermClassLogsDeleteAll, PermClassLogsReanalyze,
		PermOrphanagesManage, PermInvoicesGenerate, PermDonationsView,
	},
	RoleAdmin: {
		PermClassLogsEditAll, PermClassLogsDeleteAll, PermClassLogsReanalyze,
		PermOrphanagesManage, PermInvoicesGenerate, PermDonationsView,
	},
	RoleManager: {
		PermClassLogsReanalyze, PermOrphanagesManage, PermDonationsView,
	},
	RoleTeacher: {},
	RoleDonor:   {},
}
