package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepos(t).Sessions

	s1, err := repo.CreateSession(ctx, &core.Session{Owner: "u1", Config: core.DefaultSessionConfig()})
	require.NoError(t, err)
	s2, err := repo.CreateSession(ctx, &core.Session{Owner: "u1", Config: core.DefaultSessionConfig()})
	require.NoError(t, err)

	assert.NotZero(t, s1.ID)
	assert.NotEqual(t, s1.ID, s2.ID)

	got, err := repo.GetSession(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Owner)
	assert.Equal(t, 3, got.Config.RetrievalK)

	_, err = repo.GetSession(ctx, 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionRepository_MessagesKeepOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepos(t).Sessions

	session, err := repo.CreateSession(ctx, &core.Session{Owner: "u1"})
	require.NoError(t, err)
	other, err := repo.CreateSession(ctx, &core.Session{Owner: "u2"})
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		require.NoError(t, repo.AppendMessages(ctx, session.ID, &core.Message{Role: role, Content: fmt.Sprintf("m%d", i)}))
	}
	require.NoError(t, repo.AppendMessages(ctx, other.ID, &core.Message{Role: core.RoleUser, Content: "elsewhere"}))

	msgs, err := repo.GetMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 12)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		assert.False(t, m.Timestamp.IsZero())
	}
}

func TestSessionRepository_AppendPair(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepos(t).Sessions

	session, err := repo.CreateSession(ctx, &core.Session{Owner: "u1"})
	require.NoError(t, err)

	err = repo.AppendMessages(ctx, session.ID,
		&core.Message{Role: core.RoleUser, Content: "question"},
		&core.Message{Role: core.RoleAssistant, Content: "answer", RetrievalContext: []string{"c1"}},
	)
	require.NoError(t, err)

	msgs, err := repo.GetMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, []string{"c1"}, msgs[1].RetrievalContext)
}

func TestSessionRepository_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepos(t).Sessions

	err := repo.AppendMessages(ctx, 99, &core.Message{Role: core.RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = repo.GetMessages(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	session, err := repo.CreateSession(ctx, &core.Session{Owner: "u1"})
	require.NoError(t, err)

	err = repo.AppendMessages(ctx, session.ID,
		&core.Message{Role: core.RoleUser, Content: "ok"},
		&core.Message{Role: core.RoleAssistant, Content: ""},
	)
	assert.ErrorIs(t, err, core.ErrInvalidMessage)

	msgs, err := repo.GetMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs, "invalid batch must not be partially written")
}
