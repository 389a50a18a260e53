package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/HenryOlvera28/landing/internal/domain"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/storage"
	"github.com/HenryOlvera28/landing/internal/tally"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	answered []tgbotapi.CallbackConfig
	sendErr  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return tgbotapi.Message{}, b.sendErr
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		b.answered = append(b.answered, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sent))
	for _, m := range b.sent {
		out = append(out, m.Text)
	}
	return out
}

func (b *fakeBot) last() tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

type fakeCatalog struct {
	products   []domain.Product
	categories []domain.Category
	err        error
}

func (c fakeCatalog) Products(context.Context) ([]domain.Product, error) {
	return c.products, c.err
}

func (c fakeCatalog) Categories(context.Context) ([]domain.Category, error) {
	return c.categories, c.err
}

type brokenStore struct{}

func (brokenStore) Write(context.Context, domain.VoteRecord) error {
	return &storage.Error{Backend: "test", Op: storage.OpWrite, Err: errors.New("disk full")}
}

func newTestApp(t *testing.T, cat fakeCatalog) (*App, *fakeBot, *storage.MemoryStore) {
	t.Helper()
	bot := &fakeBot{}
	store := storage.NewMemoryStore()
	a := New(Deps{
		Bot:      bot,
		Votes:    store,
		Tally:    tally.NewEngine(store),
		Catalog:  cat,
		Featured: 2,
		Logger:   zaptest.NewLogger(t),
	})
	return a, bot, store
}

func command(chatID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func TestVoteCommand(t *testing.T) {
	a, bot, store := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(42, "/vote P1"))

	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Results:")
	assert.Contains(t, texts[0], "P1")
	assert.Equal(t, "Vote saved.", texts[1])
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "P1", records[0].SubjectID)
}

func TestVoteCommand_MissingSelection(t *testing.T) {
	a, bot, store := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(42, "/vote"))

	require.Len(t, bot.texts(), 1)
	assert.Contains(t, bot.last().Text, "Please select a product")

	records, _ := store.ReadAll(ctx)
	assert.Empty(t, records)
}

func TestVoteCommand_StoreFailure(t *testing.T) {
	bot := &fakeBot{}
	store := storage.NewMemoryStore()
	a := New(Deps{
		Bot:     bot,
		Votes:   brokenStore{},
		Tally:   tally.NewEngine(store),
		Catalog: fakeCatalog{},
		Logger:  zaptest.NewLogger(t),
	})

	a.HandleUpdate(context.Background(), command(42, "/vote P1"))

	require.Len(t, bot.texts(), 1, "no results are rendered after a failed write")
	assert.Equal(t, "Could not save the vote: test write: disk full", bot.last().Text)
}

func TestVoteCallback(t *testing.T) {
	a, bot, store := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, callback(7, "vote:P2"))

	require.Len(t, bot.answered, 1)
	assert.Equal(t, "cb-1", bot.answered[0].CallbackQueryID)
	assert.Equal(t, "Vote saved.", bot.answered[0].Text)

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(7), bot.sent[0].ChatID)

	records, _ := store.ReadAll(ctx)
	require.Len(t, records, 1)
	assert.Equal(t, "P2", records[0].SubjectID)
}

func TestUnknownCallbackIsAnswered(t *testing.T) {
	a, bot, _ := newTestApp(t, fakeCatalog{})

	a.HandleUpdate(context.Background(), callback(7, "something"))

	require.Len(t, bot.answered, 1)
	assert.Empty(t, bot.answered[0].Text)
	assert.Empty(t, bot.sent)
}

func TestResultsCommand(t *testing.T) {
	a, bot, store := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(1, "/results"))
	require.Len(t, bot.texts(), 1)
	assert.Contains(t, bot.last().Text, render.EmptyMessage)

	require.NoError(t, store.Write(ctx, domain.VoteRecord{ID: "a", SubjectID: "Mug"}))
	require.NoError(t, store.Write(ctx, domain.VoteRecord{ID: "b", SubjectID: "Mug"}))

	a.HandleUpdate(ctx, command(1, "/results"))
	text := bot.last().Text
	assert.Contains(t, text, "Mug")
	assert.Contains(t, text, "2")
	assert.Contains(t, text, "Total")
}

func TestProductsCommand(t *testing.T) {
	cat := fakeCatalog{products: []domain.Product{
		{ID: "1", Title: "Wireless Noise Cancelling Headphones", Price: "129.99"},
		{ID: "2", Title: "Mug", Price: "9.50"},
		{ID: "3", Title: "Lamp", Price: "20"},
	}}
	a, bot, _ := newTestApp(t, cat)

	a.HandleUpdate(context.Background(), command(5, "/products"))

	msg := bot.last()
	assert.Contains(t, msg.Text, "Wireless Noise Cance...")
	assert.Contains(t, msg.Text, "Mug")
	assert.NotContains(t, msg.Text, "Lamp", "only featured products are listed")

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "vote:2", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestCatalogErrors(t *testing.T) {
	a, bot, _ := newTestApp(t, fakeCatalog{err: errors.New("HTTP error: 503")})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(5, "/products"))
	assert.Equal(t, "Could not load products: HTTP error: 503", bot.last().Text)

	a.HandleUpdate(ctx, command(5, "/categories"))
	assert.Equal(t, "Could not load categories: HTTP error: 503", bot.last().Text)
}

func TestCategoriesCommand(t *testing.T) {
	a, bot, _ := newTestApp(t, fakeCatalog{categories: []domain.Category{{ID: "1", Name: "Kitchen"}}})

	a.HandleUpdate(context.Background(), command(5, "/categories"))
	assert.Equal(t, "Categories:\n• Kitchen (ID 1)\n", bot.last().Text)
}

func TestHelpAndUnknown(t *testing.T) {
	a, bot, _ := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(5, "/start"))
	assert.Contains(t, bot.last().Text, "/vote productID")

	a.HandleUpdate(ctx, command(5, "/nope"))
	assert.Equal(t, "Unknown command. Try /help", bot.last().Text)

	a.HandleUpdate(ctx, tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 5}}})
	assert.Len(t, bot.texts(), 2, "plain text is ignored")
}

func TestChatsHaveSeparateSessions(t *testing.T) {
	a, _, _ := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(1, "/vote P1"))
	a.HandleUpdate(ctx, command(2, "/vote P1"))

	assert.Equal(t, 2, a.sessions.Len())
	_, shown := a.getSession(1).Displayed.Last()
	assert.True(t, shown)
}

func TestPublishAfterVoteOnly(t *testing.T) {
	var published [][]domain.TallyEntry
	bot := &fakeBot{}
	store := storage.NewMemoryStore()
	a := New(Deps{
		Bot:     bot,
		Votes:   store,
		Tally:   tally.NewEngine(store),
		Catalog: fakeCatalog{},
		Publish: render.PresenterFunc(func(_ context.Context, entries []domain.TallyEntry) error {
			published = append(published, entries)
			return nil
		}),
	})

	ctx := context.Background()
	a.HandleUpdate(ctx, command(1, "/vote P1"))
	require.Len(t, published, 1)
	assert.Equal(t, []domain.TallyEntry{{SubjectID: "P1", Count: 1}}, published[0])

	a.HandleUpdate(ctx, command(1, "/results"))
	assert.Len(t, published, 1, "showing results does not republish")
}

func TestFailedSendKeepsDisplayedTally(t *testing.T) {
	a, bot, _ := newTestApp(t, fakeCatalog{})
	ctx := context.Background()

	a.HandleUpdate(ctx, command(3, "/vote P1"))
	shownBefore, ok := a.getSession(3).Displayed.Last()
	require.True(t, ok)

	bot.sendErr = errors.New("chat unreachable")
	a.HandleUpdate(ctx, command(3, "/vote P2"))

	shownAfter, _ := a.getSession(3).Displayed.Last()
	assert.Equal(t, shownBefore, shownAfter, "a tally the chat never received is not recorded")
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	a, bot, _ := newTestApp(t, fakeCatalog{})

	updates := make(chan tgbotapi.Update, 1)
	updates <- command(1, "/help")
	close(updates)

	a.Run(context.Background(), updates)
	assert.Len(t, bot.texts(), 1)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short"))
	long := strings.Repeat("x", maxMessageLen+10)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, "(truncated)"))
	assert.Len(t, got, maxMessageLen+len("\n\n(truncated)"))
}
