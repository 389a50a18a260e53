// Package app is the Telegram front end: every chat gets its own vote flow
// and sees the tally as a table message.
package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/HenryOlvera28/landing/internal/catalog"
	"github.com/HenryOlvera28/landing/internal/domain"
	"github.com/HenryOlvera28/landing/internal/render"
	"github.com/HenryOlvera28/landing/internal/session"
	"github.com/HenryOlvera28/landing/internal/storage"
	"github.com/HenryOlvera28/landing/internal/vote"
)

const (
	votePrefix      = "vote:"
	maxCallbackData = 64
	maxMessageLen   = 4000
)

// Sender is the part of *tgbotapi.BotAPI the app talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Catalog interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type Deps struct {
	Bot      Sender
	Votes    vote.Writer
	Tally    vote.Tallier
	Catalog  Catalog
	Featured int
	Logger   *zap.Logger

	// Publish receives the tally after every successful vote. Optional.
	Publish render.Presenter
}

type App struct {
	bot      Sender
	catalog  Catalog
	featured int
	sessions *session.Manager
	logger   *zap.Logger
}

func New(deps Deps) *App {
	a := &App{
		bot:      deps.Bot,
		catalog:  deps.Catalog,
		featured: deps.Featured,
		logger:   deps.Logger,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}

	a.sessions = session.NewManager(func(key string, shown *render.Snapshot) *vote.Flow {
		chatID, _ := strconv.ParseInt(key, 10, 64)
		return vote.NewFlow(vote.Deps{
			Votes:     deps.Votes,
			Tally:     deps.Tally,
			Presenter: render.Chain(chatPresenter{bot: a.bot, chatID: chatID}, shown),
			Publish:   deps.Publish,
			Logger:    a.logger.With(zap.Int64("chat_id", chatID)),
		})
	})
	return a
}

// Run handles updates until ctx is canceled or the channel closes.
func (a *App) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-updates:
			if !ok {
				return
			}
			a.HandleUpdate(ctx, update)
		}
	}
}

func (a *App) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		a.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		a.handleCallback(ctx, update.CallbackQuery)
	}
}

func (a *App) getSession(chatID int64) *session.Session {
	return a.sessions.Get(strconv.FormatInt(chatID, 10))
}

func (a *App) reply(chatID int64, text string) {
	if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		a.logger.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// ---------- Updates ----------

const helpText = "Hi! Vote for your favourite product.\n\n" +
	"Commands:\n" +
	"/products – featured products with vote buttons\n" +
	"/categories – product categories\n" +
	"/vote productID – vote for a product\n" +
	"/results – current results"

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		a.reply(chatID, helpText)

	case "products":
		a.handleProducts(ctx, chatID)

	case "categories":
		a.handleCategories(ctx, chatID)

	case "vote":
		text := a.submit(ctx, chatID, msg.CommandArguments())
		a.reply(chatID, text)

	case "results":
		a.handleResults(ctx, chatID)

	default:
		a.reply(chatID, "Unknown command. Try /help")
	}
}

func (a *App) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	if !strings.HasPrefix(cq.Data, votePrefix) {
		_, _ = a.bot.Request(tgbotapi.NewCallback(cq.ID, ""))
		return
	}

	text := a.submit(ctx, cq.Message.Chat.ID, strings.TrimPrefix(cq.Data, votePrefix))
	if _, err := a.bot.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		a.logger.Warn("answer callback", zap.Error(err))
	}
}

// submit casts a vote for the chat and returns the text to show.
func (a *App) submit(ctx context.Context, chatID int64, productID string) string {
	sess := a.getSession(chatID)
	_, err := sess.Flow.Submit(ctx, productID)

	var storeErr *storage.Error
	switch {
	case err == nil:
		return vote.SavedMessage
	case errors.Is(err, vote.ErrMissingSelection):
		return "Please select a product: /vote productID, or tap a button under /products."
	case errors.Is(err, vote.ErrSubmissionInProgress):
		return "Your previous vote is still being saved."
	case errors.Is(err, vote.ErrRefreshFailed):
		return "Vote saved, but the results could not be loaded."
	case errors.As(err, &storeErr):
		return "Could not save the vote: " + err.Error()
	}
	a.logger.Error("vote failed", zap.Int64("chat_id", chatID), zap.Error(err))
	return "Could not save the vote."
}

// ---------- Catalog ----------

func (a *App) handleProducts(ctx context.Context, chatID int64) {
	products, err := a.catalog.Products(ctx)
	if err != nil {
		a.logger.Warn("products feed", zap.Error(err))
		a.reply(chatID, "Could not load products: "+err.Error())
		return
	}
	products = catalog.Featured(products, a.featured)
	if len(products) == 0 {
		a.reply(chatID, "No products available.")
		return
	}

	var sb strings.Builder
	var buttons [][]tgbotapi.InlineKeyboardButton

	sb.WriteString("Featured products:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "• %s – $%s (ID %s)\n", p.ShortTitle(), p.Price, p.SubjectID())

		data := votePrefix + p.SubjectID()
		if len(data) > maxCallbackData {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+p.ShortTitle(), data),
		))
	}

	msg := tgbotapi.NewMessage(chatID, truncate(sb.String()))
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	if _, err := a.bot.Send(msg); err != nil {
		a.logger.Warn("send products", zap.Error(err))
	}
}

func (a *App) handleCategories(ctx context.Context, chatID int64) {
	categories, err := a.catalog.Categories(ctx)
	if err != nil {
		a.logger.Warn("categories feed", zap.Error(err))
		a.reply(chatID, "Could not load categories: "+err.Error())
		return
	}
	if len(categories) == 0 {
		a.reply(chatID, "No categories available.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "• %s (ID %s)\n", c.Name, c.ID)
	}
	a.reply(chatID, truncate(sb.String()))
}

// ---------- Results ----------

func (a *App) handleResults(ctx context.Context, chatID int64) {
	sess := a.getSession(chatID)
	if _, err := sess.Flow.Refresh(ctx); err != nil {
		text := "Could not load votes: " + err.Error()
		if _, shown := sess.Displayed.Last(); shown {
			text += "\nThe last results above are still current as far as we know."
		}
		a.reply(chatID, text)
	}
}

type chatPresenter struct {
	bot    Sender
	chatID int64
}

func (p chatPresenter) Render(_ context.Context, entries []domain.TallyEntry) error {
	msg := tgbotapi.NewMessage(p.chatID, "Results:\n<pre>"+html.EscapeString(truncate(render.TableString(entries)))+"</pre>")
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := p.bot.Send(msg); err != nil {
		return fmt.Errorf("send results to chat %d: %w", p.chatID, err)
	}
	return nil
}

func truncate(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	return text[:maxMessageLen] + "\n\n(truncated)"
}
