package telegram

import "strings"

// helpText lists the built-in commands.
var helpText = strings.Join([]string{
	"Commands:",
	"/start - show welcome and status",
	"/help - show command list",
	"/ping - service check",
}, "\n")

// fallbackText is the reply for text the bot cannot handle locally when the
// downstream processor is unavailable or declined the update.
const fallbackText = "Use /help for available commands."

// welcomeText is the /start reply, varying with downstream AI availability.
func welcomeText(aiAvailable bool) string {
	if aiAvailable {
		return strings.Join([]string{
			"Welcome to HyperlinksSpace bot.",
			"AI is online now.",
			"Send a prompt and I will help you.",
			"Use /help to see available commands.",
		}, "\n")
	}
	return strings.Join([]string{
		"Welcome to HyperlinksSpace bot.",
		"AI is temporarily unavailable, but the bot is online.",
		"Use /help to see available commands.",
	}, "\n")
}
