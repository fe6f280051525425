package board

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/telegram-chess-bot/internal/obslog"
)

// Empty marks a cell with no piece on it.
const Empty byte = '.'

// StartPlacement is the piece placement of the standard starting position.
const StartPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// Grid is an 8x8 board indexed [rank][file]; rank 0 is the 8th rank,
// the first rank group of the placement notation.
type Grid [8][8]byte

// Viewer selects the orientation a board is rendered in.
type Viewer int

const (
	ViewerWhite Viewer = iota
	ViewerBlack
)

var glyphs = map[byte]string{
	'K': "♔", 'Q': "♕", 'R': "♖", 'B': "♗", 'N': "♘", 'P': "♙",
	'k': "♚", 'q': "♛", 'r': "♜", 'b': "♝", 'n': "♞", 'p': "♟",
	Empty: "·",
}

// Glyph maps a placement symbol to its display glyph. Unrecognized
// symbols render as the empty-cell glyph.
func Glyph(sym byte) string {
	if g, ok := glyphs[sym]; ok {
		return g
	}
	return glyphs[Empty]
}

// Parse decodes the piece-placement segment of a board-state string into a
// Grid. The segment is the portion before the first space; rank groups are
// separated by '/' or '-'. Anything that does not decode to exactly 8 groups
// falls back to the starting position: rendering degrades, never aborts.
func Parse(notation string) Grid {
	placement := notation
	if i := strings.IndexByte(placement, ' '); i >= 0 {
		placement = placement[:i]
	}

	ranks := strings.FieldsFunc(placement, func(r rune) bool {
		return r == '/' || r == '-'
	})
	if len(ranks) != 8 {
		obslog.L().Warn("board_parse_degrade",
			zap.String("notation", notation),
			zap.Int("rank_groups", len(ranks)),
		)
		return StartingGrid()
	}

	var g Grid
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			g[r][f] = Empty
		}
		file := 0
		for i := 0; i < len(ranks[r]); i++ {
			c := ranks[r][i]
			if c >= '1' && c <= '9' {
				file += int(c - '0')
			} else {
				if file < 8 {
					g[r][file] = c
				}
				file++
			}
			if file >= 8 {
				break
			}
		}
	}
	return g
}

// StartingGrid returns the standard starting position.
func StartingGrid() Grid {
	var g Grid
	ranks := strings.Split(StartPlacement, "/")
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			g[r][f] = Empty
		}
		file := 0
		for i := 0; i < len(ranks[r]) && file < 8; i++ {
			c := ranks[r][i]
			if c >= '1' && c <= '9' {
				file += int(c - '0')
				continue
			}
			g[r][file] = c
			file++
		}
	}
	return g
}

// SquareLabel returns the algebraic label for a grid coordinate,
// e.g. rank 6 file 4 -> "e2".
func SquareLabel(rank, file int) string {
	return string([]byte{byte('a' + file), byte('0' + 8 - rank)})
}

// At maps a displayed cell back to grid coordinates for the viewer.
// A White viewer sees the grid as stored; a Black viewer sees both axes
// mirrored. Text and interactive renderings share this single rule.
func At(g Grid, v Viewer, row, col int) (sym byte, rank, file int) {
	rank, file = row, col
	if v == ViewerBlack {
		rank, file = 7-row, 7-col
	}
	return g[rank][file], rank, file
}

// RenderText produces the human-readable board with rank numbers on the
// left and file letters underneath.
func RenderText(g Grid, v Viewer) string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		sym, rank, _ := At(g, v, row, 0)
		sb.WriteByte(byte('0' + 8 - rank))
		sb.WriteByte(' ')
		sb.WriteString(Glyph(sym))
		for col := 1; col < 8; col++ {
			sym, _, _ = At(g, v, row, col)
			sb.WriteByte(' ')
			sb.WriteString(Glyph(sym))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  ")
	for col := 0; col < 8; col++ {
		_, _, file := At(g, v, 0, col)
		if col > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte('a' + file))
	}
	return sb.String()
}
