package rbac

// Default role policy. Handlers still apply record-level ownership checks on
// top of these coarse grants.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"exam:start",
		"exam:submit",
		"attempt:view-own",
		"student:view",
		"student:update",
		"user:change_password",
	},
	"teacher": {
		"exam:view",
		"exam:create",
		"exam:update",
		"exam:delete",
		"teacher:update",
		"question:view",
		"question:create",
		"question:update",
		"question:delete",
		"student:view",
		"teacher:view",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
