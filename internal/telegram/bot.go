package telegram

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"go.uber.org/zap"

	"github.com/kapu/telegram-chess-bot/internal/board"
	"github.com/kapu/telegram-chess-bot/internal/dispatcher"
	"github.com/kapu/telegram-chess-bot/internal/obslog"
)

// Bot bridges Telegram updates to the dispatcher and renders its replies
// as Telegram messages with the matching keyboards.
type Bot struct {
	tb   *tele.Bot
	disp *dispatcher.Dispatcher

	callTimeout time.Duration
}

// New builds a long-polling bot bound to the dispatcher.
func New(token string, pollTimeout, callTimeout time.Duration, disp *dispatcher.Dispatcher) (*Bot, error) {
	tb, err := tele.NewBot(tele.Settings{
		Token:     token,
		Poller:    &tele.LongPoller{Timeout: pollTimeout},
		ParseMode: tele.ModeMarkdown,
	})
	if err != nil {
		return nil, err
	}

	b := &Bot{tb: tb, disp: disp, callTimeout: callTimeout}
	tb.Use(recoverMiddleware)
	tb.Handle(tele.OnText, b.onText)
	tb.Handle(tele.OnCallback, b.onCallback)
	return b, nil
}

// Start blocks polling for updates until Stop is called.
func (b *Bot) Start() {
	obslog.L().Info("bot_start", zap.String("username", b.tb.Me.Username))
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
	obslog.L().Info("bot_stop")
}

// Notify implements dispatcher.Notifier. Best effort, failures are logged.
func (b *Bot) Notify(chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if _, err := b.tb.Send(tele.ChatID(chatID), text); err != nil {
		obslog.L().Warn("notify_send_error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) onText(c tele.Context) error {
	ev := dispatcher.Event{
		ChatID:   c.Chat().ID,
		UserName: displayName(c.Sender()),
		Text:     c.Text(),
	}
	return b.deliver(c, ev)
}

func (b *Bot) onCallback(c tele.Context) error {
	data := c.Callback().Data
	data = strings.TrimPrefix(data, "\f")

	ev := dispatcher.Event{
		ChatID:   c.Chat().ID,
		UserName: displayName(c.Sender()),
		Text:     data,
		Callback: true,
	}
	if err := c.Respond(); err != nil {
		obslog.L().Warn("callback_ack_error", zap.Error(err))
	}
	return b.deliver(c, ev)
}

func (b *Bot) deliver(c tele.Context, ev dispatcher.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.callTimeout)
	defer cancel()

	reply := b.disp.Handle(ctx, ev)
	if reply.Text == "" {
		return nil
	}

	var opts []any
	switch {
	case reply.Layout != nil:
		opts = append(opts, layoutMarkup(reply.Layout))
	case reply.MainMenu:
		opts = append(opts, mainMenu())
	case reply.DrawPrompt:
		opts = append(opts, drawPrompt())
	}
	return c.Send(reply.Text, opts...)
}

// layoutMarkup turns a board layout into the 8x8 inline keyboard plus the
// control row. Callback data is sent raw so the dispatcher can parse the
// same tokens it would see as text commands.
func layoutMarkup(l *board.Layout) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, 9)
	for _, cells := range l.Cells {
		row := make([]tele.InlineButton, 0, 8)
		for _, cell := range cells {
			row = append(row, tele.InlineButton{Text: cell.Text, Data: cell.Action})
		}
		rows = append(rows, row)
	}
	controls := make([]tele.InlineButton, 0, len(l.Controls))
	for _, cell := range l.Controls {
		controls = append(controls, tele.InlineButton{Text: cell.Text, Data: cell.Action})
	}
	rows = append(rows, controls)
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

func mainMenu() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		markup.Row(markup.Text("/newgame"), markup.Text("/listgames")),
		markup.Row(markup.Text("/board"), markup.Text("/moves")),
		markup.Row(markup.Text("/draw"), markup.Text("/resign")),
	)
	return markup
}

func drawPrompt() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{
		{Text: "✅ Accept", Data: "/draw accept"},
		{Text: "❌ Decline", Data: "/draw decline"},
	}}}
}

func displayName(u *tele.User) string {
	if u == nil {
		return "Player"
	}
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "Player"
}

func recoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				obslog.L().Error("handler_panic",
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
