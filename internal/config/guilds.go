package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// GuildSettings holds the role and channel ids one guild uses for tickets.
type GuildSettings struct {
	StaffRole          string                         `yaml:"staff_role"`
	HighStaffRole      string                         `yaml:"high_staff_role"`
	PartnerManagerRole string                         `yaml:"partner_manager_role"`
	CommandRole        string                         `yaml:"command_role"`
	LogChannel         string                         `yaml:"log_channel"`
	Blacklist          map[domain.TicketType][]string `yaml:"blacklist"`
	RequiredRoles      map[domain.TicketType]string   `yaml:"required_roles"`
}

// Guilds maps guild ids to their settings.
type Guilds map[string]GuildSettings

type guildsFile struct {
	Guilds Guilds `yaml:"guilds"`
}

// Lookup returns the settings of guildID, or zero settings when unknown.
func (g Guilds) Lookup(guildID string) GuildSettings {
	if g == nil {
		return GuildSettings{}
	}
	return g[guildID]
}

// LoadGuilds reads per-guild settings from a YAML file. A missing file yields no settings.
func LoadGuilds(path string) (Guilds, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Guilds{}, nil
		}
		return nil, fmt.Errorf("read guilds file: %w", err)
	}
	return ParseGuilds(content)
}

// ParseGuilds decodes the guild settings document.
func ParseGuilds(content []byte) (Guilds, error) {
	var doc guildsFile
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode guilds file: %w", err)
	}
	if doc.Guilds == nil {
		doc.Guilds = Guilds{}
	}
	for id, settings := range doc.Guilds {
		for ticketType := range settings.Blacklist {
			if !ticketType.Valid() {
				return nil, fmt.Errorf("guild %s: unknown ticket type %q in blacklist", id, ticketType)
			}
		}
		for ticketType := range settings.RequiredRoles {
			if !ticketType.Valid() {
				return nil, fmt.Errorf("guild %s: unknown ticket type %q in required_roles", id, ticketType)
			}
		}
	}
	return doc.Guilds, nil
}
