package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pwani/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_HappyPath(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.matches, f.messages)
	ctx := context.Background()

	alice := f.createUser(t)
	bob := f.createUser(t)
	match := f.createMatch(t, alice.ID, bob.ID)

	msg, err := svc.SendMessage(ctx, alice.ID, match.ID, "  jambo!  ", "")
	require.NoError(t, err)
	assert.Equal(t, "jambo!", msg.Body, "body is trimmed")
	assert.Equal(t, "text", msg.Kind, "kind defaults to text")
	assert.NotZero(t, msg.ID)

	total, err := svc.UnreadTotal(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.matches, f.messages)
	ctx := context.Background()

	alice := f.createUser(t)
	bob := f.createUser(t)
	match := f.createMatch(t, alice.ID, bob.ID)

	for name, body := range map[string]string{
		"Empty":      "",
		"Whitespace": "   ",
		"Too Long":   strings.Repeat("a", 2001),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, alice.ID, match.ID, body, "text")
			require.Error(t, err)

			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		})
	}
}

func TestSendMessage_OutsiderIsRejected(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.matches, f.messages)
	ctx := context.Background()

	alice := f.createUser(t)
	bob := f.createUser(t)
	outsider := f.createUser(t)
	match := f.createMatch(t, alice.ID, bob.ID)

	_, err := svc.SendMessage(ctx, outsider.ID, match.ID, "let me in", "text")
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestListMessages_MarksPeerMessagesRead(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.matches, f.messages)
	ctx := context.Background()

	alice := f.createUser(t)
	bob := f.createUser(t)
	match := f.createMatch(t, alice.ID, bob.ID)

	_, err := svc.SendMessage(ctx, alice.ID, match.ID, "habari?", "text")
	require.NoError(t, err)

	messages, err := svc.ListMessages(ctx, bob.ID, match.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	total, err := svc.UnreadTotal(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, total, "reading the conversation clears the counter")
}

func TestDeleteMessage_OnlyOwnMessages(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.matches, f.messages)
	ctx := context.Background()

	alice := f.createUser(t)
	bob := f.createUser(t)
	match := f.createMatch(t, alice.ID, bob.ID)

	msg, err := svc.SendMessage(ctx, alice.ID, match.ID, "oops", "text")
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, bob.ID, match.ID, msg.ID)
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)

	require.NoError(t, svc.DeleteMessage(ctx, alice.ID, match.ID, msg.ID))

	messages, err := svc.ListMessages(ctx, alice.ID, match.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteMessage_WrongMatchIsNotFound(t *testing.T) {
	f := newFixture(t)
	svc := NewChatService(f.matches, f.messages)
	ctx := context.Background()

	alice := f.createUser(t)
	bob := f.createUser(t)
	carol := f.createUser(t)
	withBob := f.createMatch(t, alice.ID, bob.ID)
	withCarol := f.createMatch(t, alice.ID, carol.ID)

	msg, err := svc.SendMessage(ctx, alice.ID, withBob.ID, "hi bob", "text")
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, alice.ID, withCarol.ID, msg.ID)
	require.Error(t, err)

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
