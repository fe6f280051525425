package dispatcher

import (
	"strings"

	"github.com/kapu/telegram-chess-bot/internal/board"
)

// Intent is the closed set of things a chat event can ask for.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentNoop
	IntentStart
	IntentHelp
	IntentNewGame
	IntentListGames
	IntentJoinGame
	IntentMove
	IntentBoard
	IntentStatus
	IntentResign
	IntentLegalMoves
	IntentDrawOffer
	IntentDrawAccept
	IntentDrawDecline
	IntentDrawUsage
	IntentSelect
)

func (i Intent) String() string {
	switch i {
	case IntentNoop:
		return "noop"
	case IntentStart:
		return "start"
	case IntentHelp:
		return "help"
	case IntentNewGame:
		return "newgame"
	case IntentListGames:
		return "listgames"
	case IntentJoinGame:
		return "joingame"
	case IntentMove:
		return "move"
	case IntentBoard:
		return "board"
	case IntentStatus:
		return "status"
	case IntentResign:
		return "resign"
	case IntentLegalMoves:
		return "legalmoves"
	case IntentDrawOffer:
		return "draw_offer"
	case IntentDrawAccept:
		return "draw_accept"
	case IntentDrawDecline:
		return "draw_decline"
	case IntentDrawUsage:
		return "draw_usage"
	case IntentSelect:
		return "select"
	default:
		return "unknown"
	}
}

// Command is a parsed chat event, constructed per event and consumed once.
type Command struct {
	Intent Intent
	Arg    string
	Raw    string
}

type route struct {
	prefix string
	// colon routes carry the argument directly after the prefix,
	// slash commands take it from the token after the first space.
	colon  bool
	intent Intent
}

// routes is matched top to bottom, first hit wins. Longer prefixes must come
// before prefixes they contain ("/moves" before "/move"); ShadowedPrefixes
// verifies the table and a test keeps it honest.
var routes = []route{
	{prefix: "/start", intent: IntentStart},
	{prefix: "/help", intent: IntentHelp},
	{prefix: "/newgame", intent: IntentNewGame},
	{prefix: "/listgames", intent: IntentListGames},
	{prefix: "/joingame", intent: IntentJoinGame},
	{prefix: "/moves", intent: IntentLegalMoves},
	{prefix: "/move", intent: IntentMove},
	{prefix: "/board", intent: IntentBoard},
	{prefix: "/status", intent: IntentStatus},
	{prefix: "/resign", intent: IntentResign},
	{prefix: "/draw", intent: IntentDrawOffer},
	{prefix: board.ActionRefresh, intent: IntentBoard},
	{prefix: board.ActionLegalMoves, intent: IntentLegalMoves},
	{prefix: board.ActionOfferDraw, intent: IntentDrawOffer},
	{prefix: board.ActionSelect, colon: true, intent: IntentSelect},
	{prefix: "move:", colon: true, intent: IntentMove},
	{prefix: board.ActionNone, intent: IntentNoop},
}

// Parse turns raw chat text or a callback payload into a Command. Both go
// through the same table; callback tokens are just more prefixes. Matching is
// case-insensitive but arguments keep their case, game ids may be mixed case.
func Parse(text string) Command {
	raw := strings.TrimSpace(text)
	t := strings.ToLower(raw)

	for _, r := range routes {
		if !strings.HasPrefix(t, r.prefix) {
			continue
		}
		arg := ""
		if r.colon {
			arg = strings.TrimSpace(raw[len(r.prefix):])
		} else if i := strings.IndexByte(raw, ' '); i >= 0 {
			arg = strings.TrimSpace(raw[i+1:])
		}
		cmd := Command{Intent: r.intent, Arg: arg, Raw: raw}
		if r.intent == IntentDrawOffer {
			cmd = refineDraw(cmd)
		}
		return cmd
	}
	return Command{Intent: IntentUnknown, Raw: raw}
}

// refineDraw splits "/draw [accept|decline]" into its three intents.
// Extra tokens after the action (a game id from a callback button) are kept
// in Arg but the session's game is what gets acted on.
func refineDraw(cmd Command) Command {
	if cmd.Arg == "" {
		return cmd
	}
	fields := strings.Fields(cmd.Arg)
	switch strings.ToLower(fields[0]) {
	case "accept":
		cmd.Intent = IntentDrawAccept
	case "decline":
		cmd.Intent = IntentDrawDecline
	default:
		cmd.Intent = IntentDrawUsage
	}
	return cmd
}

// ShadowedPrefixes reports routes that can never match because an earlier
// route's prefix is a prefix of theirs. A non-empty result is a table bug.
func ShadowedPrefixes() []string {
	var shadowed []string
	for i, earlier := range routes {
		for _, later := range routes[i+1:] {
			if strings.HasPrefix(later.prefix, earlier.prefix) {
				shadowed = append(shadowed, later.prefix)
			}
		}
	}
	return shadowed
}
