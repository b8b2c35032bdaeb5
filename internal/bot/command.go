package bot

import (
	"strings"
)

// Text subcommands accepted after the command prefix.
const (
	CommandAdd          = "add"
	CommandRemove       = "remove"
	CommandCloseRequest = "closerequest"
	CommandClose        = "close"
	CommandClaim        = "claim"
	CommandUnclaim      = "unclaim"
	CommandRename       = "rename"
	CommandHistory      = "history"
)

const usage = "usage: `%s add @user | remove @user | closerequest [reason] | close [reason] | claim | unclaim | rename <name> | history @user`"

// Command is a parsed text command.
type Command struct {
	Name string
	// Args is the raw remainder after the subcommand, whitespace trimmed.
	Args string
}

// ParseCommand splits content into a subcommand when it starts with prefix.
// ok is false for messages that are not addressed to the bot at all.
func ParseCommand(prefix, content string) (Command, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	rest := content[len(prefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' {
		// "-tickets" is not "-ticket"
		return Command{}, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Command{}, true
	}
	name := strings.Fields(rest)[0]
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(rest[len(name):])}, true
}

// MentionedUser extracts a user id from "<@123>", "<@!123>" or a bare id.
func MentionedUser(arg string) string {
	arg = strings.TrimSpace(arg)
	if fields := strings.Fields(arg); len(fields) > 0 {
		arg = fields[0]
	}
	if strings.HasPrefix(arg, "<@") && strings.HasSuffix(arg, ">") {
		arg = strings.TrimPrefix(strings.TrimSuffix(arg[2:], ">"), "!")
	}
	if arg == "" {
		return ""
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return arg
}
