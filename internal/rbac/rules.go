package rbac

// Default is the policy the HTTP layer enforces. Admins hold every permission.
var Default = Policy{
	"student": {
		"test:view",
		"result:submit",
		"result:view-own",
		"review:create",
		"review:view",
		"leaderboard:view",
		"stats:view-own",
		"user:change_password",
	},
	"admin": {
		"*",
	},
}
