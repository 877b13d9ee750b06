package store

import (
	"context"
	"testing"
	"time"

	"GemChat/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
			db, err := OpenDB(DriverSQLite, dsn)
			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			t.Cleanup(func() { _ = sqlDB.Close() })
			s, err := NewGorm(db, zap.NewNop())
			require.NoError(t, err)
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range backends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func textDraft(t *testing.T, content string, role models.Role) models.MessageDraft {
	d, err := models.TextDraft(content, role)
	require.NoError(t, err)
	return d
}

func TestCreateChat_DefaultTitle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		c, err := s.CreateChat(ctx, "")
		require.NoError(t, err)
		require.NotEmpty(t, c.ID)
		require.Equal(t, models.DefaultChatTitle, c.Title)
		require.True(t, c.CreatedAt.Equal(c.UpdatedAt))

		c2, err := s.CreateChat(ctx, "  Trip plans ")
		require.NoError(t, err)
		require.Equal(t, "Trip plans", c2.Title)
		require.NotEqual(t, c.ID, c2.ID)
	})
}

func TestListChats_OrderedByUpdatedAtDesc(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		chats, err := s.ListChats(ctx)
		require.NoError(t, err)
		require.Empty(t, chats)

		var ids []string
		for i := 0; i < 5; i++ {
			c, err := s.CreateChat(ctx, "")
			require.NoError(t, err)
			ids = append(ids, c.ID)
		}

		chats, err = s.ListChats(ctx)
		require.NoError(t, err)
		require.Len(t, chats, 5)
		for i := 1; i < len(chats); i++ {
			require.False(t, chats[i].UpdatedAt.After(chats[i-1].UpdatedAt))
		}
		require.Equal(t, ids[4], chats[0].ID)

		// Appending to the oldest chat moves it to the front.
		_, err = s.AppendMessage(ctx, ids[0], textDraft(t, "bump", models.RoleUser))
		require.NoError(t, err)
		chats, err = s.ListChats(ctx)
		require.NoError(t, err)
		require.Equal(t, ids[0], chats[0].ID)
	})
}

func TestListMessages_UnknownChatIsEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		msgs, err := s.ListMessages(ctx, "never-created")
		require.NoError(t, err)
		require.NotNil(t, msgs)
		require.Empty(t, msgs)

		c, err := s.CreateChat(ctx, "")
		require.NoError(t, err)
		msgs, err = s.ListMessages(ctx, c.ID)
		require.NoError(t, err)
		require.Empty(t, msgs)
	})
}

func TestAppendMessage_Scenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		c1, err := s.CreateChat(ctx, "")
		require.NoError(t, err)

		m1, err := s.AppendMessage(ctx, c1.ID, textDraft(t, "hi", models.RoleUser))
		require.NoError(t, err)
		require.Equal(t, c1.ID, m1.ChatID)
		require.Equal(t, models.MessageText, m1.MessageType)
		require.Empty(t, m1.ImageURL)

		chats, err := s.ListChats(ctx)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		require.True(t, chats[0].UpdatedAt.Equal(m1.CreatedAt))
		require.False(t, chats[0].UpdatedAt.Before(chats[0].CreatedAt))

		m2, err := s.AppendMessage(ctx, c1.ID, textDraft(t, "hello", models.RoleAssistant))
		require.NoError(t, err)
		require.True(t, m2.CreatedAt.After(m1.CreatedAt))

		msgs, err := s.ListMessages(ctx, c1.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		require.Equal(t, m1.ID, msgs[0].ID)
		require.Equal(t, m2.ID, msgs[1].ID)
		require.Equal(t, models.RoleAssistant, msgs[1].Role)

		chats, err = s.ListChats(ctx)
		require.NoError(t, err)
		require.True(t, chats[0].UpdatedAt.Equal(m2.CreatedAt))
	})
}

func TestAppendMessage_ImageMessage(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, err := s.CreateChat(ctx, "")
		require.NoError(t, err)

		d, err := models.NewMessageDraft("a fox", models.RoleAssistant, models.MessageImage, "https://picsum.photos/500/400?random=1")
		require.NoError(t, err)
		m, err := s.AppendMessage(ctx, c.ID, d)
		require.NoError(t, err)

		msgs, err := s.ListMessages(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, m.ID, msgs[0].ID)
		require.Equal(t, models.MessageImage, msgs[0].MessageType)
		require.Equal(t, "https://picsum.photos/500/400?random=1", msgs[0].ImageURL)
	})
}

func TestAppendMessage_OrphanTolerated(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		m, err := s.AppendMessage(ctx, "orphan", textDraft(t, "hi", models.RoleUser))
		require.NoError(t, err)

		msgs, err := s.ListMessages(ctx, "orphan")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, m.ID, msgs[0].ID)

		chats, err := s.ListChats(ctx)
		require.NoError(t, err)
		require.Empty(t, chats)
	})
}

func TestAppendMessage_Rejects(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.AppendMessage(ctx, " ", textDraft(t, "hi", models.RoleUser))
		require.ErrorIs(t, err, ErrChatIDRequired)

		_, err = s.AppendMessage(ctx, "c", models.MessageDraft{})
		require.ErrorIs(t, err, ErrEmptyDraft)
	})
}

func TestDeleteChat_CascadesAndIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		c, err := s.CreateChat(ctx, "")
		require.NoError(t, err)
		other, err := s.CreateChat(ctx, "")
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, c.ID, textDraft(t, "hi", models.RoleUser))
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, other.ID, textDraft(t, "keep", models.RoleUser))
		require.NoError(t, err)

		require.NoError(t, s.DeleteChat(ctx, c.ID))
		require.NoError(t, s.DeleteChat(ctx, c.ID))
		require.NoError(t, s.DeleteChat(ctx, "never-created"))

		msgs, err := s.ListMessages(ctx, c.ID)
		require.NoError(t, err)
		require.Empty(t, msgs)

		chats, err := s.ListChats(ctx)
		require.NoError(t, err)
		require.Len(t, chats, 1)
		require.Equal(t, other.ID, chats[0].ID)

		msgs, err = s.ListMessages(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
	})
}

func TestMemory_ConcurrentAppends(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	c, err := s.CreateChat(ctx, "")
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			d, _ := models.TextDraft("x", models.RoleUser)
			_, _ = s.AppendMessage(ctx, c.ID, d)
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}

	msgs, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 20)
	for i := 1; i < len(msgs); i++ {
		require.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
	}
}

func TestClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	c := &clock{now: func() time.Time { return fixed }}

	a := c.Now()
	b := c.Now()
	require.Equal(t, fixed.Truncate(time.Microsecond), a)
	require.Equal(t, a.Add(time.Microsecond), b)
}

func TestOpen(t *testing.T) {
	s, err := Open("", "", zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &Memory{}, s)

	_, err = Open("oracle", "x", zap.NewNop())
	require.Error(t, err)
}
