package board

// Callback action tokens carried by interactive cells. The chat transport
// sends them back verbatim; the dispatcher feeds them through the same
// parser as typed text.
const (
	ActionNone       = "none"
	ActionSelect     = "select:" // + square label
	ActionRefresh    = "refresh_board"
	ActionLegalMoves = "show_legal_moves"
	ActionOfferDraw  = "offer_draw"
)

// MoveIndex groups legal moves by their origin square.
type MoveIndex map[string][]string

// BuildMoveIndex groups a legal-move list by the first two characters.
// Entries shorter than 4 characters are dropped.
func BuildMoveIndex(moves []string) MoveIndex {
	idx := make(MoveIndex)
	for _, m := range moves {
		if len(m) < 4 {
			continue
		}
		from := m[:2]
		idx[from] = append(idx[from], m)
	}
	return idx
}

// Cell is one clickable element of the interactive board.
type Cell struct {
	Text   string
	Action string
}

// Layout is the 8x8 clickable board plus one trailing control row.
type Layout struct {
	Cells    [8][8]Cell
	Controls []Cell
}

// BuildLayout attaches an action to each of the 64 displayed cells: a select
// action when the move index has at least one move originating there, an
// inert action otherwise. Orientation matches RenderText cell for cell.
func BuildLayout(g Grid, v Viewer, idx MoveIndex) Layout {
	var l Layout
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sym, rank, file := At(g, v, row, col)
			square := SquareLabel(rank, file)
			cell := Cell{Text: Glyph(sym), Action: ActionNone}
			if len(idx[square]) > 0 {
				cell.Action = ActionSelect + square
			}
			l.Cells[row][col] = cell
		}
	}
	l.Controls = []Cell{
		{Text: "🔄 Refresh", Action: ActionRefresh},
		{Text: "📋 All moves", Action: ActionLegalMoves},
		{Text: "🤝 Draw", Action: ActionOfferDraw},
	}
	return l
}
