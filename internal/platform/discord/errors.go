package discord

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// wrap classifies a discordgo failure into a platform.Error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return platform.NewError(op, kindOf(err), err)
}

func kindOf(err error) platform.ErrorKind {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return platform.KindTransient
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			return platform.KindUnreachable
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage,
			discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return platform.KindNotFound
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return platform.KindForbidden
		}
	}
	if restErr.Response == nil {
		return platform.KindTransient
	}
	switch restErr.Response.StatusCode {
	case http.StatusNotFound:
		return platform.KindNotFound
	case http.StatusForbidden:
		return platform.KindForbidden
	default:
		return platform.KindTransient
	}
}
