package nnue

import "github.com/hailam/chessplay/internal/board"

// FeatureIndex maps a (color, piece type, square) triple to its position in
// the 768-wide input vector: color*6*64 + piece*64 + square. This is the
// corrected form of the index arithmetic; a naive (color*piece)+square
// formula collides distinct pieces onto the same index.
func FeatureIndex(c board.Color, pt board.PieceType, sq board.Square) int {
	return int(c)*6*64 + int(pt)*64 + int(sq)
}

// ActiveFeatures returns the indices of every feature bit currently on,
// i.e. one per occupied square, across both colors and all six piece types.
func ActiveFeatures(pos *board.Position) []int {
	features := make([]int, 0, 32)
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				features = append(features, FeatureIndex(c, pt, sq))
			}
		}
	}
	return features
}

// FeatureDiff describes the set-symmetric-difference between the feature
// sets of two positions one ply apart: which feature bits turned off and
// which turned on. Applying Off then On to a valid accumulator for the
// prior position yields the accumulator for the new one.
type FeatureDiff struct {
	Off []int
	On  []int
}

// Diff computes the feature toggles caused by playing m, given the
// position AFTER m has been applied and the piece (if any) it captured.
// Unlike a king-relative (HalfKP) network, a flat board-square network has
// no perspective to rebuild on king moves: every move, including castling,
// is just a handful of (color, piece, square) toggles.
func Diff(pos *board.Position, m board.Move, captured board.Piece) FeatureDiff {
	var d FeatureDiff
	from := m.From()
	to := m.To()
	moved := pos.PieceAt(to)
	if moved == board.NoPiece {
		return d
	}

	us := moved.Color()
	movedType := moved.Type()

	// The piece that stood on `from` before the move is either the mover
	// itself or, for a promotion, the pawn it used to be.
	originType := movedType
	if m.IsPromotion() {
		originType = board.Pawn
	}
	d.Off = append(d.Off, FeatureIndex(us, originType, from))
	d.On = append(d.On, FeatureIndex(us, movedType, to))

	if captured != board.NoPiece {
		capSq := to
		if m.IsEnPassant() {
			if us == board.White {
				capSq = to - 8
			} else {
				capSq = to + 8
			}
		}
		d.Off = append(d.Off, FeatureIndex(captured.Color(), captured.Type(), capSq))
	}

	if m.IsCastling() {
		rookFrom, rookTo := castleRookSquares(pos, us, to)
		d.Off = append(d.Off, FeatureIndex(us, board.Rook, rookFrom))
		d.On = append(d.On, FeatureIndex(us, board.Rook, rookTo))
	}

	return d
}

// castleRookSquares returns the rook's pre- and post-castling squares given
// the king's destination square, reading the rook's home square back from
// the position's own castling bookkeeping so Chess960 rook homes resolve
// correctly.
func castleRookSquares(pos *board.Position, us board.Color, kingTo board.Square) (from, to board.Square) {
	kingSide := kingTo.File() == board.G1.File()
	side := 0
	if !kingSide {
		side = 1
	}
	from = pos.CastleRookFrom[us][side]
	if kingSide {
		to = board.NewSquare(board.F1.File(), kingTo.Rank())
	} else {
		to = board.NewSquare(board.D1.File(), kingTo.Rank())
	}
	return from, to
}
