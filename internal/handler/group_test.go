package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeleter records deletion requests instead of calling Telegram.
type fakeDeleter struct {
	deleted []int
	err     error
}

func (f *fakeDeleter) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, params.MessageID)
	return nil
}

func topicMessage(userID int64, messageID int) telego.Message {
	return telego.Message{
		MessageID: messageID,
		From:      &telego.User{ID: userID, FirstName: "Someone"},
		Chat:      telego.Chat{ID: -100555},
	}
}

func adminOnly(adminID int64) func(int64) bool {
	return func(userID int64) bool { return userID == adminID }
}

// TestGuardWarningTopic_DeletesNonAdminMessage verifies a regular
// member's post in the warning topic is removed.
func TestGuardWarningTopic_DeletesNonAdminMessage(t *testing.T) {
	deleter := &fakeDeleter{}

	err := guardWarningTopic(context.Background(), deleter, topicMessage(7, 41), adminOnly(1))

	require.NoError(t, err)
	assert.Equal(t, []int{41}, deleter.deleted)
}

// TestGuardWarningTopic_KeepsAdminMessage verifies admin posts are
// left alone.
func TestGuardWarningTopic_KeepsAdminMessage(t *testing.T) {
	deleter := &fakeDeleter{}

	err := guardWarningTopic(context.Background(), deleter, topicMessage(1, 41), adminOnly(1))

	require.NoError(t, err)
	assert.Empty(t, deleter.deleted)
}

// TestGuardWarningTopic_DeletionFailureIsSwallowed verifies a failed
// deletion is logged and does not fail the update.
func TestGuardWarningTopic_DeletionFailureIsSwallowed(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("message to delete not found")}

	err := guardWarningTopic(context.Background(), deleter, topicMessage(7, 41), adminOnly(1))

	assert.NoError(t, err)
	assert.Empty(t, deleter.deleted)
}

// TestIsCommandMessage verifies commands are recognized by their
// leading bot_command entity, not by text alone.
func TestIsCommandMessage(t *testing.T) {
	command := telego.Message{
		Text: "/rules@profileguard_bot",
		Entities: []telego.MessageEntity{
			{Type: telego.EntityTypeBotCommand, Offset: 0, Length: 23},
		},
	}
	assert.True(t, isCommandMessage(command))

	midText := telego.Message{
		Text: "try /rules for details",
		Entities: []telego.MessageEntity{
			{Type: telego.EntityTypeBotCommand, Offset: 4, Length: 6},
		},
	}
	assert.False(t, isCommandMessage(midText))

	plain := telego.Message{Text: "hello there"}
	assert.False(t, isCommandMessage(plain))

	slashText := telego.Message{Text: "/notacommand without entity"}
	assert.False(t, isCommandMessage(slashText))
}
