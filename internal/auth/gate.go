package auth

import "github.com/spec-kit/ticket-bot/internal/platform"

// Member is the acting guild member as delivered with an interaction or message.
type Member struct {
	UserID      string
	Username    string
	RoleIDs     []string
	Permissions int64
}

// Gate answers role and permission questions about a member. It holds no
// configuration: role ids are supplied by the caller.
type Gate struct{}

// HasRole reports whether m carries roleID. An empty roleID never matches.
func (Gate) HasRole(m Member, roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether m carries at least one of roleIDs.
func (g Gate) HasAnyRole(m Member, roleIDs ...string) bool {
	for _, id := range roleIDs {
		if g.HasRole(m, id) {
			return true
		}
	}
	return false
}

// IsAdmin reports the administrator permission.
func (Gate) IsAdmin(m Member) bool {
	return m.Permissions&platform.PermissionAdministrator != 0
}

// IsStaffLike is administrator, manage-channels or manage-guild.
func (g Gate) IsStaffLike(m Member) bool {
	return g.IsAdmin(m) ||
		m.Permissions&platform.PermissionManageChannels != 0 ||
		m.Permissions&platform.PermissionManageGuild != 0
}
