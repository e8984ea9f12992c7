package chat_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hugh/campuschat/internal/chat"
	"github.com/hugh/campuschat/internal/database/models"
	"github.com/hugh/campuschat/internal/tenant"
	"github.com/hugh/campuschat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeSource replays a fixed token sequence, optionally failing after a
// prefix.
type fakeSource struct {
	tokens     []string
	failAfter  int // fail after this many tokens; -1 means never
	configured bool
	openErr    error
}

func (s *fakeSource) Configured() bool { return s.configured }

func (s *fakeSource) Stream(ctx context.Context, prompt string) (chat.TokenStream, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &fakeStream{tokens: s.tokens, failAfter: s.failAfter}, nil
}

type fakeStream struct {
	tokens    []string
	failAfter int
	pos       int
	closed    bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.failAfter >= 0 && s.pos >= s.failAfter {
		return "", errors.New("connection reset")
	}
	if s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// collectSink records every token; failAt makes Send fail at that index.
type collectSink struct {
	tokens []string
	failAt int // -1 means never
}

func (s *collectSink) Send(token string) error {
	if s.failAt >= 0 && len(s.tokens) >= s.failAt {
		return errors.New("client went away")
	}
	s.tokens = append(s.tokens, token)
	return nil
}

func setupRelayTest(t *testing.T, source chat.Source) (*chat.Relay, *gorm.DB, *models.User) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenants := tenant.NewService(db, logger, nil)

	user := testutil.CreateTestUser(t, db, "chatter@example.com")
	tn := testutil.CreateTestTenant(t, db, "Study Group")
	testutil.CreateTestMembership(t, db, tn, user, models.RoleStudent)
	testutil.SetCurrentTenant(t, db, user, tn)

	return chat.NewRelay(db, tenants, source, logger), db, user
}

func messagesFor(t *testing.T, db *gorm.DB, role string) []models.ChatMessage {
	t.Helper()
	var msgs []models.ChatMessage
	require.NoError(t, db.Where("role = ?", role).Order("created_at ASC").Find(&msgs).Error)
	return msgs
}

func TestRelay_Respond(t *testing.T) {
	ctx := context.Background()

	t.Run("completed stream persists the full reply", func(t *testing.T) {
		source := &fakeSource{tokens: []string{"Hel", "lo"}, failAfter: -1, configured: true}
		relay, db, user := setupRelayTest(t, source)
		sink := &collectSink{failAt: -1}

		err := relay.Respond(ctx, user.ID, "hi there", sink)
		require.NoError(t, err)
		assert.Equal(t, []string{"Hel", "lo"}, sink.tokens)

		userMsgs := messagesFor(t, db, models.ChatRoleUser)
		require.Len(t, userMsgs, 1)
		assert.Equal(t, "hi there", userMsgs[0].Content)

		assistantMsgs := messagesFor(t, db, models.ChatRoleAssistant)
		require.Len(t, assistantMsgs, 1)
		assert.Equal(t, "Hello", assistantMsgs[0].Content)
		assert.Equal(t, user.ID, assistantMsgs[0].UserID)
	})

	t.Run("aborted stream discards the partial reply", func(t *testing.T) {
		source := &fakeSource{tokens: []string{"Hel", "lo"}, failAfter: 1, configured: true}
		relay, db, user := setupRelayTest(t, source)
		sink := &collectSink{failAt: -1}

		err := relay.Respond(ctx, user.ID, "hi there", sink)
		assert.ErrorIs(t, err, chat.ErrUpstream)

		// The forwarded prefix is not retracted.
		assert.Equal(t, []string{"Hel"}, sink.tokens)

		// The user turn survives; no assistant turn exists.
		assert.Len(t, messagesFor(t, db, models.ChatRoleUser), 1)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleAssistant))
	})

	t.Run("sink failure aborts like an upstream failure", func(t *testing.T) {
		source := &fakeSource{tokens: []string{"Hel", "lo"}, failAfter: -1, configured: true}
		relay, db, user := setupRelayTest(t, source)
		sink := &collectSink{failAt: 1}

		err := relay.Respond(ctx, user.ID, "hi there", sink)
		assert.ErrorIs(t, err, chat.ErrUpstream)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleAssistant))
	})

	t.Run("empty exhausted stream writes no assistant turn", func(t *testing.T) {
		source := &fakeSource{tokens: nil, failAfter: -1, configured: true}
		relay, db, user := setupRelayTest(t, source)
		sink := &collectSink{failAt: -1}

		err := relay.Respond(ctx, user.ID, "hi there", sink)
		require.NoError(t, err)
		assert.Len(t, messagesFor(t, db, models.ChatRoleUser), 1)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleAssistant))
	})

	t.Run("whitespace-only reply writes no assistant turn", func(t *testing.T) {
		source := &fakeSource{tokens: []string{"  ", "\n"}, failAfter: -1, configured: true}
		relay, db, user := setupRelayTest(t, source)
		sink := &collectSink{failAt: -1}

		err := relay.Respond(ctx, user.ID, "hi there", sink)
		require.NoError(t, err)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleAssistant))
	})

	t.Run("blank message rejected before any write", func(t *testing.T) {
		source := &fakeSource{configured: true, failAfter: -1}
		relay, db, user := setupRelayTest(t, source)

		err := relay.Respond(ctx, user.ID, "   \n ", &collectSink{failAt: -1})
		assert.ErrorIs(t, err, chat.ErrEmptyMessage)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleUser))
	})

	t.Run("unconfigured source writes nothing", func(t *testing.T) {
		source := &fakeSource{configured: false, failAfter: -1}
		relay, db, user := setupRelayTest(t, source)

		err := relay.Respond(ctx, user.ID, "hi there", &collectSink{failAt: -1})
		assert.ErrorIs(t, err, chat.ErrNotConfigured)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleUser))
	})

	t.Run("failure to open the stream keeps the user turn", func(t *testing.T) {
		source := &fakeSource{configured: true, failAfter: -1, openErr: errors.New("dial timeout")}
		relay, db, user := setupRelayTest(t, source)

		err := relay.Respond(ctx, user.ID, "hi there", &collectSink{failAt: -1})
		assert.ErrorIs(t, err, chat.ErrUpstream)
		assert.Len(t, messagesFor(t, db, models.ChatRoleUser), 1)
		assert.Empty(t, messagesFor(t, db, models.ChatRoleAssistant))
	})

	t.Run("no current tenant", func(t *testing.T) {
		source := &fakeSource{configured: true, failAfter: -1}
		relay, db, _ := setupRelayTest(t, source)
		stray := testutil.CreateTestUser(t, db, "stray@example.com")

		err := relay.Respond(ctx, stray.ID, "hi there", &collectSink{failAt: -1})
		assert.ErrorIs(t, err, tenant.ErrCurrentTenantUnset)
	})
}
