package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

func TestGate(t *testing.T) {
	var gate Gate
	member := Member{UserID: "u1", RoleIDs: []string{"staff", "vip"}}

	assert.True(t, gate.HasRole(member, "staff"))
	assert.False(t, gate.HasRole(member, "high"))
	assert.False(t, gate.HasRole(member, ""), "unset role ids never match")
	assert.True(t, gate.HasAnyRole(member, "high", "vip"))
	assert.False(t, gate.HasAnyRole(member))

	assert.False(t, gate.IsAdmin(member))
	assert.False(t, gate.IsStaffLike(member))

	tests := []struct {
		name      string
		perms     int64
		admin     bool
		staffLike bool
	}{
		{"administrator", platform.PermissionAdministrator, true, true},
		{"manage channels", platform.PermissionManageChannels, false, true},
		{"manage guild", platform.PermissionManageGuild, false, true},
		{"send only", platform.PermissionSendMessages | platform.PermissionViewChannel, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Member{UserID: "u2", Permissions: tt.perms}
			assert.Equal(t, tt.admin, gate.IsAdmin(m))
			assert.Equal(t, tt.staffLike, gate.IsStaffLike(m))
		})
	}
}
