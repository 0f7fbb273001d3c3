package rbac

const (
	PermQuizCreate     = "quiz:create"
	PermQuizView       = "quiz:view"
	PermAttemptCreate  = "attempt:create"
	PermAttemptSave    = "attempt:save"
	PermAttemptSubmit  = "attempt:submit"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermAttemptGrade   = "attempt:grade"
)

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizView,
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermAttemptViewOwn,
	},
	"teacher": {
		PermQuizCreate,
		PermQuizView,
		"attempt:*",
	},
	"admin": {
		"*", // everything
	},
}
