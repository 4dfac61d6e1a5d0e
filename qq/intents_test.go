package qq_test

import (
	"testing"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIntents(t *testing.T) {
	t.Parallel()

	mask := qq.BuildIntents(qq.IntentGuildMessages, qq.IntentPublicGuildMessages, qq.IntentInteraction)

	assert.Equal(t, qq.Intent((1<<9)|(1<<26)|(1<<30)), mask)
	assert.Equal(t, qq.Intent(0x44000200), mask)
	assert.Equal(t, qq.Intent(0), qq.BuildIntents())
	assert.Equal(t, qq.IntentGuilds, qq.BuildIntents(qq.IntentGuilds, qq.IntentGuilds))
}

func TestDefaultIntents(t *testing.T) {
	t.Parallel()

	assert.Equal(t, qq.Intent((1<<9)|(1<<10)|(1<<26)|(1<<30)), qq.DefaultIntents)
	assert.True(t, qq.DefaultIntents.Has(qq.IntentGuildMessageReactions))
	assert.False(t, qq.DefaultIntents.Has(qq.IntentDirectMessage))
}

func TestParseIntents(t *testing.T) {
	t.Parallel()

	mask, err := qq.ParseIntents([]string{"guild_messages", " PUBLIC_GUILD_MESSAGES", "INTERACTION"})
	require.NoError(t, err)
	assert.Equal(t, qq.Intent(0x44000200), mask)

	mask, err = qq.ParseIntents(nil)
	require.NoError(t, err)
	assert.Equal(t, qq.DefaultIntents, mask)

	_, err = qq.ParseIntents([]string{"GUILD_MESSAGES", "VOICE"})
	assert.ErrorIs(t, err, qq.ErrUnknownIntent)
}
