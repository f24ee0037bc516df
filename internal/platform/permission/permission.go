package permission

import (
	"todoapp/internal/common"
	"todoapp/internal/database"
)

type Action int

const (
	Read Action = iota
	Write
)

// Permission decides whether actor may perform action on group.
type Permission interface {
	Allowed(actor *database.User, group *database.GroupRoster, action Action) bool
}

type Func func(actor *database.User, group *database.GroupRoster, action Action) bool

func (f Func) Allowed(actor *database.User, group *database.GroupRoster, action Action) bool {
	return f(actor, group, action)
}

func All(perms ...Permission) Permission {
	return Func(func(actor *database.User, group *database.GroupRoster, action Action) bool {
		for _, p := range perms {
			if !p.Allowed(actor, group, action) {
				return false
			}
		}
		return true
	})
}

func Any(perms ...Permission) Permission {
	return Func(func(actor *database.User, group *database.GroupRoster, action Action) bool {
		for _, p := range perms {
			if p.Allowed(actor, group, action) {
				return true
			}
		}
		return false
	})
}

var (
	IsGroupAdmin = Func(func(actor *database.User, group *database.GroupRoster, _ Action) bool {
		return actor != nil && group != nil && group.IsAdmin(actor.ID)
	})

	IsGroupMember = Func(func(actor *database.User, group *database.GroupRoster, _ Action) bool {
		return actor != nil && group != nil && group.IsMember(actor.ID)
	})

	ReadOnly = Func(func(_ *database.User, _ *database.GroupRoster, action Action) bool {
		return action == Read
	})

	// GroupAdminOrMemberReadOnly gives admins full access and members read
	// access. Everybody else is refused.
	GroupAdminOrMemberReadOnly = Any(IsGroupAdmin, All(IsGroupMember, ReadOnly))
)

// Check returns common.ErrForbidden unless p allows the action.
func Check(p Permission, actor *database.User, group *database.GroupRoster, action Action) error {
	if !p.Allowed(actor, group, action) {
		return common.ErrForbidden
	}
	return nil
}
