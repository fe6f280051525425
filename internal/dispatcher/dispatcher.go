package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/telegram-chess-bot/internal/board"
	"github.com/kapu/telegram-chess-bot/internal/gamelog"
	"github.com/kapu/telegram-chess-bot/internal/gamesvc"
	"github.com/kapu/telegram-chess-bot/internal/msgcat"
	"github.com/kapu/telegram-chess-bot/internal/obslog"
	"github.com/kapu/telegram-chess-bot/internal/session"
)

const legalMovesLimit = 20

// GameService is the remote chess service the dispatcher talks to.
type GameService interface {
	CreateGame(ctx context.Context, playerID int64, playerName string) (*gamesvc.GameResponse, error)
	WaitingGames(ctx context.Context) ([]gamesvc.GameInfo, error)
	JoinGame(ctx context.Context, gameID string, playerID int64, playerName string) (*gamesvc.GameResponse, error)
	MakeMove(ctx context.Context, gameID string, playerID int64, notation string) (*gamesvc.GameResponse, error)
	GameState(ctx context.Context, gameID string, playerID int64) (*gamesvc.GameResponse, error)
	LegalMoves(ctx context.Context, gameID string, playerID int64) ([]string, error)
	OfferDraw(ctx context.Context, gameID string, playerID int64) (*gamesvc.GameResponse, error)
	RespondDraw(ctx context.Context, gameID string, playerID int64, accept bool) (*gamesvc.GameResponse, error)
	Ping(ctx context.Context) (string, error)
}

// Notifier pushes an unsolicited message to a chat (opponent notifications).
type Notifier interface {
	Notify(chatID int64, text string)
}

// Event is one inbound chat update, command text or callback payload.
type Event struct {
	ChatID   int64
	UserName string
	Text     string
	Callback bool
}

// Reply is what the transport should send back. A zero Reply means
// "acknowledge silently" (inert callback cells).
type Reply struct {
	Text       string
	Layout     *board.Layout
	MainMenu   bool
	DrawPrompt bool
}

// Dispatcher parses inbound events, sequences remote calls around the
// session store, and renders templated replies. Every path returns a
// displayable Reply; failures never escape this boundary.
type Dispatcher struct {
	svc      GameService
	store    *session.Store
	cat      *msgcat.Catalog
	archive  *gamelog.Repository
	notifier Notifier
}

func New(svc GameService, store *session.Store, cat *msgcat.Catalog) *Dispatcher {
	return &Dispatcher{svc: svc, store: store, cat: cat}
}

// AttachArchive wires the optional finished-game archive.
func (d *Dispatcher) AttachArchive(r *gamelog.Repository) {
	if d != nil {
		d.archive = r
	}
}

// SetNotifier wires the transport used for opponent notifications.
func (d *Dispatcher) SetNotifier(n Notifier) {
	if d != nil {
		d.notifier = n
	}
}

// Handle processes one event and always returns a reply.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (reply Reply) {
	corr := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("dispatch_panic",
				zap.String("correlation_id", corr),
				zap.Int64("chat_id", ev.ChatID),
				zap.Any("panic", r),
			)
			reply = Reply{Text: d.cat.Text("error.generic", nil)}
		}
	}()

	cmd := Parse(ev.Text)
	obslog.L().Info("dispatch",
		zap.String("correlation_id", corr),
		zap.Int64("chat_id", ev.ChatID),
		zap.String("intent", cmd.Intent.String()),
		zap.Bool("callback", ev.Callback),
	)

	switch cmd.Intent {
	case IntentStart:
		return Reply{Text: d.cat.Text("start", map[string]any{"Name": ev.UserName}), MainMenu: true}
	case IntentHelp:
		return Reply{Text: d.cat.Text("help", nil)}
	case IntentNewGame:
		return d.handleNewGame(ctx, ev)
	case IntentListGames:
		return d.handleListGames(ctx)
	case IntentJoinGame:
		return d.handleJoinGame(ctx, ev, cmd.Arg)
	case IntentMove:
		return d.handleMove(ctx, ev, cmd.Arg)
	case IntentBoard:
		return d.handleBoard(ctx, ev)
	case IntentStatus:
		return d.handleStatus(ctx)
	case IntentResign:
		return Reply{Text: d.cat.Text("resign.stub", nil)}
	case IntentLegalMoves:
		return d.handleLegalMoves(ctx, ev)
	case IntentDrawOffer:
		return d.handleDrawOffer(ctx, ev)
	case IntentDrawAccept:
		return d.handleDrawRespond(ctx, ev, true)
	case IntentDrawDecline:
		return d.handleDrawRespond(ctx, ev, false)
	case IntentDrawUsage:
		return Reply{Text: d.cat.Text("draw.usage", nil)}
	case IntentSelect:
		return d.handleSelect(ev, cmd.Arg)
	case IntentNoop:
		return Reply{}
	default:
		return Reply{Text: d.cat.Text("unknown", map[string]any{"Input": cmd.Raw})}
	}
}

func (d *Dispatcher) handleNewGame(ctx context.Context, ev Event) Reply {
	if d.store.HasActiveGame(ev.ChatID) {
		cur := d.store.Get(ev.ChatID)
		return Reply{Text: d.cat.Text("newgame.conflict", map[string]any{"GameID": cur.GameID})}
	}

	resp, err := d.svc.CreateGame(ctx, ev.ChatID, ev.UserName)
	if err != nil || !resp.OK() {
		return Reply{Text: d.cat.Text("newgame.error", map[string]any{
			"Message": remoteMessage(resp, err, "Server is not responding"),
		})}
	}

	d.store.Create(resp.GameID, ev.ChatID, ev.ChatID)
	return Reply{Text: d.cat.Text("newgame.success", map[string]any{
		"GameID":  resp.GameID,
		"Creator": ev.UserName,
		"Status":  resp.Status,
	})}
}

func (d *Dispatcher) handleListGames(ctx context.Context) Reply {
	games, err := d.svc.WaitingGames(ctx)
	if err != nil {
		obslog.L().Warn("waiting_games_error", zap.Error(err))
	}
	if len(games) == 0 {
		return Reply{Text: d.cat.Text("listgames.empty", nil)}
	}

	var sb strings.Builder
	sb.WriteString(d.cat.Text("listgames.header", nil))
	sb.WriteString("\n\n")
	for _, g := range games {
		sb.WriteString(d.cat.Text("listgames.entry", map[string]any{
			"GameID":    g.GameID,
			"Creator":   g.WhitePlayerName,
			"CreatedAt": g.CreatedAt,
		}))
		sb.WriteString("\n\n")
	}
	sb.WriteString(d.cat.Text("listgames.footer", nil))
	return Reply{Text: sb.String()}
}

func (d *Dispatcher) handleJoinGame(ctx context.Context, ev Event, gameID string) Reply {
	if gameID == "" {
		return Reply{Text: d.cat.Text("joingame.usage", nil)}
	}
	if d.store.HasActiveGame(ev.ChatID) {
		cur := d.store.Get(ev.ChatID)
		return Reply{Text: d.cat.Text("newgame.conflict", map[string]any{"GameID": cur.GameID})}
	}

	creator := d.store.GetByGameID(gameID)

	resp, err := d.svc.JoinGame(ctx, gameID, ev.ChatID, ev.UserName)
	if err != nil || !resp.OK() {
		return Reply{Text: d.cat.Text("joingame.error", map[string]any{
			"Message": remoteMessage(resp, err, "Game not found"),
		})}
	}

	d.store.Create(gameID, ev.ChatID, ev.ChatID)

	color := session.ColorWhite
	if resp.WhitePlayer != nil && resp.WhitePlayer.ID != ev.ChatID {
		color = session.ColorBlack
	}
	d.store.Update(ev.ChatID, color, normalizeStatus(resp.Status))
	if name := opponentName(resp, color); name != "" {
		d.store.SetOpponentName(ev.ChatID, name)
	}

	if creator != nil && creator.ChatID != ev.ChatID {
		d.notify(creator.ChatID, d.cat.Text("notify.gamestart", map[string]any{
			"Opponent": ev.UserName,
			"GameID":   gameID,
		}))
	}

	return Reply{Text: d.cat.Text("joingame.success", map[string]any{
		"GameID":      gameID,
		"Color":       string(color),
		"Status":      resp.Status,
		"Board":       boardOrPlaceholder(resp.Board),
		"TurnMessage": d.turnMessage(resp.Status),
	})}
}

func (d *Dispatcher) handleMove(ctx context.Context, ev Event, notation string) Reply {
	sess := d.store.Get(ev.ChatID)
	if sess == nil {
		return Reply{Text: d.cat.Text("move.noactive", nil)}
	}
	if notation == "" {
		return Reply{Text: d.cat.Text("move.usage", nil)}
	}

	resp, err := d.svc.MakeMove(ctx, sess.GameID, sess.PlayerID, notation)
	if err != nil || !resp.OK() {
		return Reply{Text: d.cat.Text("move.error", map[string]any{
			"Message": remoteMessage(resp, err, "Illegal move"),
		})}
	}

	status := normalizeStatus(resp.Status)
	d.store.Update(ev.ChatID, sess.PlayerColor, status)
	if isTerminal(status) {
		d.archiveResult(ctx, sess, string(status), "played out")
	}
	d.notifyOpponent(ev.ChatID, sess.GameID, resp, notation)

	return Reply{Text: d.cat.Text("move.success", map[string]any{
		"Notation": notation,
		"Message":  resp.Message,
		"Status":   resp.Status,
		"Turn":     resp.CurrentTurn,
		"Board":    boardOrPlaceholder(resp.Board),
		"Players":  formatPlayers(resp),
	})}
}

func (d *Dispatcher) handleBoard(ctx context.Context, ev Event) Reply {
	sess := d.store.Get(ev.ChatID)
	if sess == nil {
		return Reply{Text: d.cat.Text("board.noactive", nil)}
	}

	resp, err := d.svc.GameState(ctx, sess.GameID, sess.PlayerID)
	if err != nil || !resp.OK() {
		return Reply{Text: d.cat.Text("board.error", nil)}
	}
	d.store.Update(ev.ChatID, sess.PlayerColor, normalizeStatus(resp.Status))

	viewer := viewerFor(sess.PlayerColor)
	grid := board.Parse(resp.Board)
	idx := board.BuildMoveIndex(resp.LegalMoves())
	layout := board.BuildLayout(grid, viewer, idx)

	text := d.cat.Text("board.message", map[string]any{
		"Message":     resp.Message,
		"GameID":      resp.GameID,
		"Status":      resp.Status,
		"Turn":        resp.CurrentTurn,
		"Board":       board.RenderText(grid, viewer),
		"Players":     formatPlayers(resp),
		"TurnMessage": d.turnMessage(resp.Status),
	})
	return Reply{Text: text, Layout: &layout}
}

func (d *Dispatcher) handleLegalMoves(ctx context.Context, ev Event) Reply {
	sess := d.store.Get(ev.ChatID)
	if sess == nil {
		return Reply{Text: d.cat.Text("moves.noactive", nil)}
	}

	moves, err := d.svc.LegalMoves(ctx, sess.GameID, sess.PlayerID)
	if err != nil {
		obslog.L().Warn("legal_moves_error", zap.String("game_id", sess.GameID), zap.Error(err))
	}
	if len(moves) == 0 {
		return Reply{Text: d.cat.Text("moves.empty", nil)}
	}

	shown := moves
	more := 0
	if len(moves) > legalMovesLimit {
		shown = moves[:legalMovesLimit]
		more = len(moves) - legalMovesLimit
	}
	var sb strings.Builder
	for i, m := range shown {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("• `")
		sb.WriteString(m)
		sb.WriteString("`")
	}
	return Reply{Text: d.cat.Text("moves.list", map[string]any{
		"Moves": sb.String(),
		"More":  more,
	})}
}

func (d *Dispatcher) handleStatus(ctx context.Context) Reply {
	probe, err := d.svc.Ping(ctx)
	api := "✅ API working: " + probe
	if err != nil {
		api = "❌ API unavailable: " + err.Error()
	}
	return Reply{Text: d.cat.Text("status", map[string]any{
		"API":      api,
		"Sessions": d.store.Count(),
	})}
}

func (d *Dispatcher) handleDrawOffer(ctx context.Context, ev Event) Reply {
	sess := d.store.Get(ev.ChatID)
	if sess == nil {
		return Reply{Text: d.cat.Text("draw.noactive", nil)}
	}

	resp, err := d.svc.OfferDraw(ctx, sess.GameID, sess.PlayerID)
	if err != nil || !resp.OK() {
		return Reply{Text: d.cat.Text("draw.offererror", map[string]any{
			"Message": remoteMessage(resp, err, ""),
		})}
	}
	return Reply{
		Text: d.cat.Text("draw.offered", map[string]any{
			"Status":  resp.Status,
			"Message": resp.Message,
		}),
		DrawPrompt: true,
	}
}

func (d *Dispatcher) handleDrawRespond(ctx context.Context, ev Event, accept bool) Reply {
	sess := d.store.Get(ev.ChatID)
	if sess == nil {
		return Reply{Text: d.cat.Text("draw.noactive", nil)}
	}

	resp, err := d.svc.RespondDraw(ctx, sess.GameID, sess.PlayerID, accept)
	if err != nil || !resp.OK() {
		return Reply{Text: d.cat.Text("draw.responderror", map[string]any{
			"Message": remoteMessage(resp, err, ""),
		})}
	}

	if accept {
		d.archiveResult(ctx, sess, string(session.StatusDraw), "agreement")
		d.store.Remove(ev.ChatID)
		return Reply{Text: d.cat.Text("draw.accepted", map[string]any{
			"Status":  resp.Status,
			"Message": resp.Message,
		})}
	}
	return Reply{Text: d.cat.Text("draw.declined", map[string]any{
		"Message": resp.Message,
	})}
}

func (d *Dispatcher) handleSelect(ev Event, square string) Reply {
	if d.store.Get(ev.ChatID) == nil {
		return Reply{Text: d.cat.Text("move.noactive", nil)}
	}
	return Reply{Text: d.cat.Text("select", map[string]any{
		"Square": strings.ToUpper(square),
		"From":   strings.ToLower(square),
	})}
}

// notifyOpponent pushes a your-turn message to the chat the game index maps
// to, when it is not the mover's own chat. Best effort only.
func (d *Dispatcher) notifyOpponent(moverChat int64, gameID string, resp *gamesvc.GameResponse, notation string) {
	opp := d.store.GetByGameID(gameID)
	if opp == nil || opp.ChatID == moverChat {
		return
	}
	grid := board.Parse(resp.Board)
	d.notify(opp.ChatID, d.cat.Text("notify.move", map[string]any{
		"GameID":   gameID,
		"Notation": notation,
		"Status":   resp.Status,
		"Board":    board.RenderText(grid, viewerFor(opp.PlayerColor)),
	}))
}

func (d *Dispatcher) notify(chatID int64, text string) {
	if d.notifier == nil {
		return
	}
	d.notifier.Notify(chatID, text)
}

func (d *Dispatcher) archiveResult(ctx context.Context, sess *session.Session, status, method string) {
	if d.archive == nil {
		return
	}
	res := gamelog.Result{
		GameID:      sess.GameID,
		ChatID:      sess.ChatID,
		PlayerID:    sess.PlayerID,
		PlayerColor: string(sess.PlayerColor),
		Opponent:    sess.OpponentName,
		Status:      status,
		Method:      method,
	}
	if err := d.archive.SaveResult(ctx, res); err != nil {
		obslog.L().Error("game_archive_error", zap.String("game_id", sess.GameID), zap.Error(err))
		return
	}
	obslog.L().Info("game_archive", zap.String("game_id", sess.GameID), zap.String("status", status))
}

func (d *Dispatcher) turnMessage(status string) string {
	switch normalizeStatus(status) {
	case session.StatusCheckmate:
		return d.cat.Text("turn.checkmate", nil)
	case session.StatusStalemate:
		return d.cat.Text("turn.stalemate", nil)
	case session.StatusDraw:
		return d.cat.Text("turn.draw", nil)
	case session.StatusCheck:
		return d.cat.Text("turn.check", nil)
	default:
		return d.cat.Text("turn.active", nil)
	}
}

func normalizeStatus(s string) session.Status {
	return session.Status(strings.ToUpper(strings.TrimSpace(s)))
}

func isTerminal(s session.Status) bool {
	switch s {
	case session.StatusCheckmate, session.StatusStalemate, session.StatusDraw:
		return true
	default:
		return false
	}
}

func viewerFor(c session.Color) board.Viewer {
	if c == session.ColorBlack {
		return board.ViewerBlack
	}
	return board.ViewerWhite
}

func remoteMessage(resp *gamesvc.GameResponse, err error, fallback string) string {
	if resp != nil && strings.TrimSpace(resp.Message) != "" {
		return resp.Message
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}

func opponentName(resp *gamesvc.GameResponse, own session.Color) string {
	var p *gamesvc.PlayerInfo
	if own == session.ColorWhite {
		p = resp.BlackPlayer
	} else {
		p = resp.WhitePlayer
	}
	if p == nil {
		return ""
	}
	return p.Name
}

func formatPlayers(resp *gamesvc.GameResponse) string {
	var sb strings.Builder
	if resp.WhitePlayer != nil {
		sb.WriteString("⚪ *White:* ")
		sb.WriteString(resp.WhitePlayer.Name)
		if resp.WhitePlayer.Rating != nil {
			sb.WriteString(fmt.Sprintf(" (Rating: %d)", *resp.WhitePlayer.Rating))
		}
		sb.WriteByte('\n')
	}
	if resp.BlackPlayer != nil {
		sb.WriteString("⚫ *Black:* ")
		sb.WriteString(resp.BlackPlayer.Name)
		if resp.BlackPlayer.Rating != nil {
			sb.WriteString(fmt.Sprintf(" (Rating: %d)", *resp.BlackPlayer.Rating))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func boardOrPlaceholder(b string) string {
	if strings.TrimSpace(b) == "" {
		return "Board unavailable"
	}
	return b
}
