package service

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Interaction ids carried by the buttons and modals the service posts.
const (
	ButtonOpenSupport     = "ticket_supporto"
	ButtonOpenPartnership = "ticket_partnership"
	ButtonOpenHigh        = "ticket_highstaff"
	ButtonClaim           = "claim_ticket"
	ButtonUnclaim         = "unclaim"
	ButtonClose           = "close_ticket"
	ButtonCloseWithReason = "close_ticket_motivo"
	ButtonAcceptClose     = "accetta"
	ButtonRejectClose     = "rifiuta"
	ButtonDescription     = "ticket_descrizione"
	ModalCloseReason      = "close_ticket_motivo_modal"
	ModalDescription      = "ticket_descrizione_modal"
	ModalFieldReason      = "motivo"
	ModalFieldDescription = "descrizione"
)

const (
	maxChannelNameLength = 100
	maxDescriptionLength = 1000

	participantPermissions = platform.PermissionViewChannel | platform.PermissionSendMessages |
		platform.PermissionEmbedLinks | platform.PermissionAttachFiles | platform.PermissionReadMessageHistory
	openerPermissions       = participantPermissions | platform.PermissionAddReactions
	staffRolePermissions    = platform.PermissionViewChannel | platform.PermissionSendMessages | platform.PermissionReadMessageHistory
	viewOnlyRolePermissions = platform.PermissionViewChannel | platform.PermissionReadMessageHistory
)

// TypeForButton maps an open button to its ticket type.
func TypeForButton(customID string) (domain.TicketType, bool) {
	switch customID {
	case ButtonOpenSupport:
		return domain.TicketTypeSupport, true
	case ButtonOpenPartnership:
		return domain.TicketTypePartnership, true
	case ButtonOpenHigh:
		return domain.TicketTypeHigh, true
	}
	return "", false
}

type roleAccess int

const (
	accessDenied roleAccess = iota
	accessViewOnly
	accessFull
)

type roleRule struct {
	roleID string
	access roleAccess
}

// roleMatrix lists the role overlays of a fresh ticket channel.
func roleMatrix(settings config.GuildSettings, ticketType domain.TicketType) []roleRule {
	switch ticketType {
	case domain.TicketTypePartnership:
		return []roleRule{
			{settings.PartnerManagerRole, accessFull},
			{settings.HighStaffRole, accessViewOnly},
			{settings.StaffRole, accessDenied},
		}
	case domain.TicketTypeHigh:
		return []roleRule{
			{settings.HighStaffRole, accessFull},
			{settings.StaffRole, accessDenied},
			{settings.PartnerManagerRole, accessDenied},
		}
	default:
		return []roleRule{
			{settings.StaffRole, accessFull},
			{settings.HighStaffRole, accessFull},
			{settings.PartnerManagerRole, accessDenied},
		}
	}
}

// staffRoles are the roles allowed to claim a ticket of the given type.
func staffRoles(settings config.GuildSettings, ticketType domain.TicketType) []string {
	var roles []string
	for _, rule := range roleMatrix(settings, ticketType) {
		if rule.access == accessFull && rule.roleID != "" {
			roles = append(roles, rule.roleID)
		}
	}
	if ticketType == domain.TicketTypePartnership && settings.HighStaffRole != "" {
		roles = append(roles, settings.HighStaffRole)
	}
	return roles
}

func roleOverwrite(rule roleRule, claimed bool) platform.Overwrite {
	ow := platform.Overwrite{ID: rule.roleID, Type: platform.OverwriteRole}
	switch {
	case rule.access == accessDenied:
		ow.Deny = platform.PermissionViewChannel
	case rule.access == accessViewOnly || claimed:
		ow.Allow = viewOnlyRolePermissions
		ow.Deny = platform.PermissionSendMessages
	default:
		ow.Allow = staffRolePermissions
	}
	return ow
}

// channelOverwrites is the permission set of a new ticket channel.
func channelOverwrites(guildID, openerID string, settings config.GuildSettings, ticketType domain.TicketType) []platform.Overwrite {
	overwrites := []platform.Overwrite{
		{ID: guildID, Type: platform.OverwriteRole, Deny: platform.PermissionViewChannel},
		{ID: openerID, Type: platform.OverwriteMember, Allow: openerPermissions},
	}
	seen := map[string]bool{guildID: true}
	for _, rule := range roleMatrix(settings, ticketType) {
		if rule.roleID == "" || seen[rule.roleID] {
			continue
		}
		seen[rule.roleID] = true
		overwrites = append(overwrites, roleOverwrite(rule, false))
	}
	return overwrites
}

// claimedRoleOverwrites returns the role overlays to apply after a claim
// (claimed == true) or after an unclaim (claimed == false). Denied roles are untouched.
func claimedRoleOverwrites(settings config.GuildSettings, ticketType domain.TicketType, claimed bool) []platform.Overwrite {
	var out []platform.Overwrite
	seen := map[string]bool{}
	for _, rule := range roleMatrix(settings, ticketType) {
		if rule.roleID == "" || seen[rule.roleID] || rule.access == accessDenied {
			continue
		}
		seen[rule.roleID] = true
		out = append(out, roleOverwrite(rule, claimed))
	}
	return out
}

func isBlacklisted(gate auth.Gate, settings config.GuildSettings, actor auth.Member, ticketType domain.TicketType) bool {
	for _, id := range settings.Blacklist[ticketType] {
		if id == actor.UserID || gate.HasRole(actor, id) {
			return true
		}
	}
	return false
}

func controlPanel(claimed bool) []platform.Button {
	buttons := []platform.Button{
		{CustomID: ButtonClose, Label: "Close", Style: platform.ButtonDanger},
		{CustomID: ButtonCloseWithReason, Label: "Close with reason", Style: platform.ButtonDanger},
	}
	if claimed {
		return append(buttons, platform.Button{CustomID: ButtonUnclaim, Label: "Unclaim", Style: platform.ButtonSecondary})
	}
	return append(buttons, platform.Button{CustomID: ButtonClaim, Label: "Claim", Style: platform.ButtonSuccess})
}

func panelContent(ticket *domain.Ticket) string {
	content := fmt.Sprintf("Welcome <@%s>, a staff member will be with you shortly.\nTicket type: **%s**", ticket.UserID, ticket.Type)
	if ticket.ClaimedBy != nil {
		content += fmt.Sprintf("\nClaimed by <@%s>", *ticket.ClaimedBy)
	}
	return content
}

var channelPrefixes = map[domain.TicketType]string{
	domain.TicketTypeSupport:     "support",
	domain.TicketTypePartnership: "partnership",
	domain.TicketTypeHigh:        "highstaff",
}

// ChannelName normalizes a free-form name to the platform's lowercase-dash form.
func ChannelName(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := []rune(strings.TrimRight(b.String(), "-"))
	if len(out) > maxChannelNameLength {
		out = out[:maxChannelNameLength]
	}
	return strings.TrimRight(string(out), "-")
}

func ticketChannelName(ticketType domain.TicketType, actor auth.Member) string {
	owner := ChannelName(actor.Username)
	if owner == "" {
		owner = actor.UserID
	}
	return ChannelName(channelPrefixes[ticketType] + "-" + owner)
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func channelMention(channelID string) string {
	return "<#" + channelID + ">"
}
