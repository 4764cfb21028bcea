package authz

const (
	PermExamRead    = "exam.read"
	PermExamPublish = "exam.publish"
	PermExamDelete  = "exam.delete"
	PermAuditRead   = "authz.audit"
)

// BuiltinPermissions is the catalog seeded by the migrations. Administration
// of the catalog beyond seeding happens outside this core.
var BuiltinPermissions = []Permission{
	{Resource: "exam", Action: "read", IsActive: true},
	{Resource: "exam", Action: "publish", IsActive: true},
	{Resource: "exam", Action: "delete", IsActive: true},
	{Resource: "authz", Action: "audit", IsActive: true},
}
