package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// buttonsPerRow is the platform limit for one action row.
const buttonsPerRow = 5

func toOverwrite(o platform.Overwrite) *discordgo.PermissionOverwrite {
	kind := discordgo.PermissionOverwriteTypeRole
	if o.Type == platform.OverwriteMember {
		kind = discordgo.PermissionOverwriteTypeMember
	}
	return &discordgo.PermissionOverwrite{ID: o.ID, Type: kind, Allow: o.Allow, Deny: o.Deny}
}

func toOverwrites(overwrites []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		out = append(out, toOverwrite(o))
	}
	return out
}

func toButtonStyle(style platform.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case platform.ButtonSecondary:
		return discordgo.SecondaryButton
	case platform.ButtonSuccess:
		return discordgo.SuccessButton
	case platform.ButtonDanger:
		return discordgo.DangerButton
	case platform.ButtonLink:
		return discordgo.LinkButton
	default:
		return discordgo.PrimaryButton
	}
}

// toComponents lays buttons out in action rows of at most five.
func toComponents(buttons []platform.Button) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{}
	for start := 0; start < len(buttons); start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    toButtonStyle(b.Style),
				Disabled: b.Disabled,
			}
			if b.Style == platform.ButtonLink {
				btn.URL = b.URL
			} else {
				btn.CustomID = b.CustomID
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}
	return rows
}

func toFiles(files []platform.File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{Name: f.Name, ContentType: f.ContentType, Reader: f.Reader})
	}
	return out
}

func toMessageSend(msg platform.MessageSend) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Components: toComponents(msg.Buttons),
		Files:      toFiles(msg.Files),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers, discordgo.AllowedMentionTypeRoles},
		},
	}
}

func fromMessage(m *discordgo.Message) *platform.Message {
	if m == nil {
		return nil
	}
	out := &platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = m.Author.Username
		if m.Author.GlobalName != "" {
			out.AuthorName = m.Author.GlobalName
		}
		out.AuthorBot = m.Author.Bot
	}
	for _, att := range m.Attachments {
		if att == nil {
			continue
		}
		out.Attachments = append(out.Attachments, platform.Attachment{Filename: att.Filename, URL: att.URL})
	}
	return out
}

func fromChannel(c *discordgo.Channel) *platform.Channel {
	return &platform.Channel{ID: c.ID, GuildID: c.GuildID, ParentID: c.ParentID, Name: c.Name}
}
