package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string and returns a Position.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare
	pos.CastleRookFrom = [2][2]Square{{NoSquare, NoSquare}, {NoSquare, NoSquare}}

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Parse castling rights (field 2). Piece placement must already be in
	// place, since Shredder-style and inferred Chess960 castling rights
	// need to locate the rook/king squares on the board.
	pos.findKings()
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.EnPassant = sq
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		pos.HalfMoveClock = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	// Update derived state
	pos.updateOccupied()
	pos.findKings()
	pos.Hash = pos.ComputeHash()
	pos.PawnKey = pos.ComputePawnKey()

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				// Skip empty squares
				file += int(c - '0')
			} else {
				// Place a piece
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return fmt.Errorf("invalid piece character: %c", c)
				}
				sq := NewSquare(file, rank)
				pos.setPiece(piece, sq)
				file++
			}
		}

		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
// Standard "KQkq" letters are accepted as usual. Shredder-FEN letters
// (A-H / a-h naming the rook's file directly) are also accepted and mark
// the position as Chess960; and even plain KQkq letters flip the Chess960
// flag when the corresponding rook is not sitting on its classical corner
// square, mirroring X-FEN's "outermost rook" convention.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for _, c := range castling {
		switch {
		case c == 'K':
			rook := outermostRook(pos, White, true)
			if rook == NoSquare {
				return fmt.Errorf("no kingside rook for white castling rights")
			}
			if rook != H1 {
				pos.Chess960 = true
			}
			pos.CastlingRights |= WhiteKingSideCastle
			pos.CastleRookFrom[White][0] = rook
		case c == 'Q':
			rook := outermostRook(pos, White, false)
			if rook == NoSquare {
				return fmt.Errorf("no queenside rook for white castling rights")
			}
			if rook != A1 {
				pos.Chess960 = true
			}
			pos.CastlingRights |= WhiteQueenSideCastle
			pos.CastleRookFrom[White][1] = rook
		case c == 'k':
			rook := outermostRook(pos, Black, true)
			if rook == NoSquare {
				return fmt.Errorf("no kingside rook for black castling rights")
			}
			if rook != H8 {
				pos.Chess960 = true
			}
			pos.CastlingRights |= BlackKingSideCastle
			pos.CastleRookFrom[Black][0] = rook
		case c == 'q':
			rook := outermostRook(pos, Black, false)
			if rook == NoSquare {
				return fmt.Errorf("no queenside rook for black castling rights")
			}
			if rook != A8 {
				pos.Chess960 = true
			}
			pos.CastlingRights |= BlackQueenSideCastle
			pos.CastleRookFrom[Black][1] = rook
		case c >= 'A' && c <= 'H':
			pos.Chess960 = true
			file := int(c - 'A')
			rook := NewSquare(file, 0)
			setShredderCastling(pos, White, rook)
		case c >= 'a' && c <= 'h':
			pos.Chess960 = true
			file := int(c - 'a')
			rook := NewSquare(file, 7)
			setShredderCastling(pos, Black, rook)
		default:
			return fmt.Errorf("invalid castling character: %c", c)
		}
	}

	return nil
}

// outermostRook finds the rook on c's back rank that is, relative to the
// king, the farthest toward the requested side — the X-FEN convention for
// interpreting plain K/Q/k/q letters in a Chess960 position.
func outermostRook(pos *Position, c Color, kingSide bool) Square {
	ksq := pos.KingSquare[c]
	kfile := ksq.File()
	rank := 0
	if c == Black {
		rank = 7
	}

	best := NoSquare
	rooks := pos.Pieces[c][Rook]
	for rooks != 0 {
		sq := rooks.PopLSB()
		if sq.Rank() != rank {
			continue
		}
		f := sq.File()
		if kingSide && f > kfile {
			if best == NoSquare || f > best.File() {
				best = sq
			}
		} else if !kingSide && f < kfile {
			if best == NoSquare || f < best.File() {
				best = sq
			}
		}
	}
	return best
}

// setShredderCastling records a Shredder-FEN rook-file letter as a
// castling right, inferring kingside/queenside from the rook's file
// relative to the king.
func setShredderCastling(pos *Position, c Color, rook Square) {
	ksq := pos.KingSquare[c]
	if rook.File() > ksq.File() {
		if c == White {
			pos.CastlingRights |= WhiteKingSideCastle
		} else {
			pos.CastlingRights |= BlackKingSideCastle
		}
		pos.CastleRookFrom[c][0] = rook
	} else {
		if c == White {
			pos.CastlingRights |= WhiteQueenSideCastle
		} else {
			pos.CastlingRights |= BlackQueenSideCastle
		}
		pos.CastleRookFrom[c][1] = rook
	}
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	// Castling rights
	sb.WriteByte(' ')
	sb.WriteString(p.castlingFENString())

	// En passant
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// castlingFENString renders the castling rights field: standard KQkq for
// regular chess, Shredder-FEN rook-file letters (e.g. "HAha") when the
// position is Chess960.
func (p *Position) castlingFENString() string {
	if p.CastlingRights == NoCastling {
		return "-"
	}

	if !p.Chess960 {
		return p.CastlingRights.String()
	}

	var sb strings.Builder
	if p.CastlingRights&WhiteKingSideCastle != 0 {
		sb.WriteByte('A' + byte(p.CastleRookFrom[White][0].File()))
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		sb.WriteByte('A' + byte(p.CastleRookFrom[White][1].File()))
	}
	if p.CastlingRights&BlackKingSideCastle != 0 {
		sb.WriteByte('a' + byte(p.CastleRookFrom[Black][0].File()))
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		sb.WriteByte('a' + byte(p.CastleRookFrom[Black][1].File()))
	}
	return sb.String()
}

// ComputeHash computes the Zobrist hash for the position from scratch,
// using the key tables built in zobrist.go.
func (p *Position) ComputeHash() uint64 {
	var hash uint64

	// Hash pieces
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				hash ^= zobristPiece[c][pt][sq]
			}
		}
	}

	// Hash side to move
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}

	// Hash castling rights
	hash ^= zobristCastling[p.CastlingRights]

	// Hash en passant
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}

	return hash
}

// ComputePawnKey computes the pawn hash key from scratch.
// Only includes pawn positions for pawn structure caching.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64

	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			sq := bb.PopLSB()
			key ^= zobristPiece[c][Pawn][sq]
		}
	}

	return key
}
