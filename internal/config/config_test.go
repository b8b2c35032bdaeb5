package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TICKET_CATEGORY_CAPACITY", "")
	t.Setenv("TICKET_DELETE_DELAY", "")
	t.Setenv("APP_HOST", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("DISCORD_COMMAND_PREFIX", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "-ticket", cfg.Discord.CommandPrefix)
	assert.Equal(t, 50, cfg.Tickets.CategoryCapacity)
	assert.Equal(t, "Tickets", cfg.Tickets.CategoryName)
	assert.Equal(t, 5*time.Second, cfg.Tickets.DeleteDelay)
	assert.Equal(t, 1000, cfg.Transcripts.MessageLimit)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TICKET_CATEGORY_CAPACITY", "3")
	t.Setenv("TICKET_DELETE_DELAY", "250ms")
	t.Setenv("MAIN_LOG_CHANNEL_ID", "log-main")
	t.Setenv("APP_HOST", "")
	t.Setenv("APP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Tickets.CategoryCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.Tickets.DeleteDelay)
	assert.Equal(t, "log-main", cfg.Transcripts.MainLogChannelID)
	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
}

func TestLoad_RejectsNonPositiveCapacity(t *testing.T) {
	t.Setenv("TICKET_CATEGORY_CAPACITY", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseGuilds(t *testing.T) {
	doc := []byte(`
guilds:
  "111":
    staff_role: "staff"
    high_staff_role: "high"
    partner_manager_role: "pm"
    command_role: "cmd"
    log_channel: "logs"
    blacklist:
      support: ["bl-support"]
      partnership: ["bl-partner"]
    required_roles:
      partnership: "verified"
`)
	guilds, err := ParseGuilds(doc)
	require.NoError(t, err)

	settings := guilds.Lookup("111")
	assert.Equal(t, "staff", settings.StaffRole)
	assert.Equal(t, "pm", settings.PartnerManagerRole)
	assert.Equal(t, []string{"bl-support"}, settings.Blacklist[domain.TicketTypeSupport])
	assert.Equal(t, "verified", settings.RequiredRoles[domain.TicketTypePartnership])

	assert.Equal(t, GuildSettings{}, guilds.Lookup("unknown"))
}

func TestParseGuilds_UnknownTicketType(t *testing.T) {
	_, err := ParseGuilds([]byte(`
guilds:
  "1":
    blacklist:
      vip: ["x"]
`))
	assert.ErrorContains(t, err, "unknown ticket type")
}

func TestLoadGuilds_MissingFile(t *testing.T) {
	guilds, err := LoadGuilds(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, guilds)
}

func TestLoadGuilds_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("guilds:\n  \"7\":\n    staff_role: s\n"), 0o600))

	guilds, err := LoadGuilds(path)
	require.NoError(t, err)
	assert.Equal(t, "s", guilds.Lookup("7").StaffRole)
}
