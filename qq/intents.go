package qq

import (
	"errors"
	"fmt"
	"strings"
)

// Intent is a bit-set of event categories the bot subscribes to.
type Intent uint32

const (
	IntentGuilds                Intent = 1 << 0
	IntentGuildMembers          Intent = 1 << 1
	IntentGuildMessages         Intent = 1 << 9
	IntentGuildMessageReactions Intent = 1 << 10
	IntentDirectMessage         Intent = 1 << 12
	IntentInteraction           Intent = 1 << 26
	IntentMessageAudit          Intent = 1 << 27
	IntentForumsEvent           Intent = 1 << 28
	IntentAudioAction           Intent = 1 << 29
	IntentPublicGuildMessages   Intent = 1 << 30
)

// DefaultIntents is the selection used when none is configured.
const DefaultIntents = IntentGuildMessages | IntentGuildMessageReactions | IntentInteraction | IntentPublicGuildMessages

var ErrUnknownIntent = errors.New("unknown intent")

var intentNames = map[string]Intent{
	"GUILDS":                  IntentGuilds,
	"GUILD_MEMBERS":           IntentGuildMembers,
	"GUILD_MESSAGES":          IntentGuildMessages,
	"GUILD_MESSAGE_REACTIONS": IntentGuildMessageReactions,
	"DIRECT_MESSAGE":          IntentDirectMessage,
	"INTERACTION":             IntentInteraction,
	"MESSAGE_AUDIT":           IntentMessageAudit,
	"FORUMS_EVENT":            IntentForumsEvent,
	"AUDIO_ACTION":            IntentAudioAction,
	"PUBLIC_GUILD_MESSAGES":   IntentPublicGuildMessages,
}

// BuildIntents combines the selected categories into a single mask.
func BuildIntents(selected ...Intent) Intent {
	var mask Intent

	for _, intent := range selected {
		mask |= intent
	}

	return mask
}

// ParseIntent resolves a configured category name such as "GUILD_MESSAGES".
func ParseIntent(name string) (Intent, error) {
	intent, ok := intentNames[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownIntent, name)
	}

	return intent, nil
}

// ParseIntents resolves every name and combines them. An empty list yields DefaultIntents.
func ParseIntents(names []string) (Intent, error) {
	if len(names) == 0 {
		return DefaultIntents, nil
	}

	selected := make([]Intent, 0, len(names))

	for _, name := range names {
		intent, err := ParseIntent(name)
		if err != nil {
			return 0, err
		}

		selected = append(selected, intent)
	}

	return BuildIntents(selected...), nil
}

// Has reports whether every bit of other is present in the mask.
func (intent Intent) Has(other Intent) bool {
	return intent&other == other
}
