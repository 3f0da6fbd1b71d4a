package engine

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/hailam/chessplay/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// nullMoveReduction is the depth reduction R applied after a null move.
const nullMoveReduction = 2

// lmrReductions is a precomputed table of late-move-reduction depths,
// indexed by [depth][moveCount].
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(21.46 * math.Log(float64(d)) * math.Log(float64(m)) / 1024.0)
		}
	}
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Searcher performs a single-threaded PVS alpha-beta search with a
// transposition table, killer/history move ordering, quiescence, and
// iterative deepening under a cooperative stop signal.
type Searcher struct {
	pos       *board.Position
	tt        *TranspositionTable
	pawnTable *PawnTable
	orderer   *MoveOrderer

	// Search state
	nodes    uint64
	stopFlag atomic.Bool

	// PV tracking
	pv PVTable

	// Undo stack
	undoStack [MaxPly]board.UndoInfo

	// Root move exclusion, for Multi-PV
	excludedRoot []board.Move

	// Position history (root game history + moves played during this
	// search) used for threefold-repetition detection.
	posHistory []uint64

	useNNUE   bool
	nnueModel *NNUEEvaluator
}

// NewSearcher creates a new searcher.
func NewSearcher(tt *TranspositionTable) *Searcher {
	return &Searcher{
		tt:        tt,
		pawnTable: NewPawnTable(1),
		orderer:   NewMoveOrderer(),
	}
}

// Stop signals the search to stop.
func (s *Searcher) Stop() {
	s.stopFlag.Store(true)
}

// IsStopped returns true if the search has been signaled to stop.
func (s *Searcher) IsStopped() bool {
	return s.stopFlag.Load()
}

// Reset resets the searcher for a new search.
func (s *Searcher) Reset() {
	s.stopFlag.Store(false)
	s.nodes = 0
	s.orderer.Clear()
	if s.useNNUE && s.nnueModel != nil {
		s.nnueModel.Reset()
	}
}

// ClearOrderer clears move ordering state (killers/history) between games.
func (s *Searcher) ClearOrderer() {
	s.orderer = NewMoveOrderer()
}

// SetRootHistory records the game's position history (hashes of positions
// played so far, oldest first) so the search can detect repetitions that
// span the root.
func (s *Searcher) SetRootHistory(hashes []uint64) {
	s.posHistory = append(s.posHistory[:0], hashes...)
}

// SetExcludedMoves excludes root moves from consideration (used by Multi-PV
// to find the next-best line after the top move(s) are already known).
func (s *Searcher) SetExcludedMoves(moves []board.Move) {
	s.excludedRoot = moves
}

// SetNNUE configures NNUE evaluation for this searcher. A nil evaluator
// disables NNUE and falls back to classical evaluation.
func (s *Searcher) SetNNUE(model *NNUEEvaluator) {
	s.nnueModel = model
	s.useNNUE = model != nil
}

// Nodes returns the number of nodes searched.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// evaluate scores the current position using NNUE when available and
// enabled, otherwise the classical tapered evaluator.
func (s *Searcher) evaluate() int {
	if s.useNNUE && s.nnueModel != nil {
		return s.nnueModel.Evaluate(s.pos)
	}
	return EvaluateWithPawnTable(s.pos, s.pawnTable)
}

// Search performs a fixed-depth search and returns the best move and score.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int) {
	s.pos = pos.Copy()
	s.Reset()

	score := s.negamax(depth, 0, -Infinity, Infinity, true)

	var bestMove board.Move
	if s.pv.length[0] > 0 {
		bestMove = s.pv.moves[0][0]
	}

	return bestMove, score
}

// IterativeDeepeningResult is reported once per completed depth.
type IterativeDeepeningResult struct {
	Depth int
	Score int
	Nodes uint64
	Time  time.Duration
	PV    []board.Move
}

// IterativeDeepening searches from depth 1 upward, using an expanding
// aspiration window seeded from the previous iteration's score, until the
// time manager says to stop, a forced mate is found, or maxDepth is
// reached. onDepth is called after every completed iteration.
func (s *Searcher) IterativeDeepening(pos *board.Position, maxDepth int, tm *TimeManager, onDepth func(IterativeDeepeningResult)) (board.Move, int) {
	s.pos = pos.Copy()
	s.Reset()

	start := time.Now()
	var bestMove board.Move
	var bestScore int
	prevScore := 0

	if maxDepth <= 0 || maxDepth > MaxPly {
		maxDepth = MaxPly
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if s.stopFlag.Load() {
			break
		}

		var score int
		var move board.Move
		if depth <= 1 {
			score = s.negamax(depth, 0, -Infinity, Infinity, true)
		} else {
			window := 25
			alpha := prevScore - window
			beta := prevScore + window
			for {
				score = s.negamax(depth, 0, alpha, beta, true)
				if s.stopFlag.Load() {
					break
				}
				if score <= alpha {
					alpha -= window
					window *= 2
				} else if score >= beta {
					beta += window
					window *= 2
				} else {
					break
				}
				if alpha <= -Infinity && beta >= Infinity {
					break
				}
			}
		}

		if s.pv.length[0] > 0 {
			move = s.pv.moves[0][0]
		}

		if s.stopFlag.Load() && depth > 1 {
			// Partial iteration: keep the previous depth's result.
			break
		}

		if move != board.NoMove {
			bestMove = move
			bestScore = score
		}
		prevScore = score

		if onDepth != nil {
			onDepth(IterativeDeepeningResult{
				Depth: depth,
				Score: bestScore,
				Nodes: s.nodes,
				Time:  time.Since(start),
				PV:    s.GetPV(),
			})
		}

		if bestScore > MateScore-MaxPly || bestScore < -MateScore+MaxPly {
			break
		}
		if tm != nil && tm.PastOptimum() {
			break
		}
	}

	return bestMove, bestScore
}

// negamax implements PVS (principal-variation search): the first move at
// each node is searched with the full alpha-beta window, every subsequent
// move gets a cheap zero-window probe that is only re-searched with the
// full window if it raises alpha without failing high.
func (s *Searcher) negamax(depth, ply int, alpha, beta int, allowNull bool) int {
	// Check for stop signal periodically
	if s.nodes&2047 == 0 && s.stopFlag.Load() {
		return 0
	}

	s.nodes++

	// Initialize PV length for this ply
	s.pv.length[ply] = ply

	pvNode := beta-alpha > 1

	// Check for draw
	if ply > 0 && s.isDraw() {
		return 0
	}

	// Probe transposition table
	var ttMove board.Move
	ttEntry, found := s.tt.Probe(s.pos.Hash)
	if found {
		ttMove = ttEntry.BestMove
		if int(ttEntry.Depth) >= depth && !pvNode {
			score := AdjustScoreFromTT(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	// Quiescence search at depth 0
	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	inCheck := s.pos.InCheck()

	// Null-move pruning: skip our move entirely and see if the opponent
	// still can't beat beta even with a free tempo. Disabled in check,
	// near mate scores, in pure pawn endings (zugzwang risk), and on the
	// principal variation.
	if allowNull && !pvNode && !inCheck && depth >= 3 &&
		beta < MateScore-MaxPly && s.pos.HasNonPawnMaterial() {
		undo := s.pos.MakeNullMove()
		score := -s.negamax(depth-1-nullMoveReduction, ply+1, -beta, -beta+1, false)
		s.pos.UnmakeNullMove(undo)

		if s.stopFlag.Load() {
			return 0
		}
		if score >= beta {
			return beta
		}
	}

	// Generate moves
	moves := s.pos.GenerateLegalMoves()

	if ply == 0 && len(s.excludedRoot) > 0 {
		moves = excludeMoves(moves, s.excludedRoot)
	}

	// Check for checkmate or stalemate
	if moves.Len() == 0 {
		if inCheck {
			return -MateScore + ply // Checkmate
		}
		return 0 // Stalemate
	}

	// Score and sort moves
	scores := s.orderer.ScoreMoves(s.pos, moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound
	moveCount := 0

	for i := 0; i < moves.Len(); i++ {
		// Pick the best remaining move
		PickMove(moves, scores, i)
		move := moves.Get(i)

		quiet := !move.IsCapture(s.pos) && !move.IsPromotion()

		// Make move
		s.undoStack[ply] = s.pos.MakeMove(move)

		// Skip if move was invalid (no piece at from square)
		if !s.undoStack[ply].Valid {
			continue
		}
		moveCount++
		s.posHistory = append(s.posHistory, s.pos.Hash)
		if s.useNNUE && s.nnueModel != nil {
			s.nnueModel.Push()
			s.nnueModel.Update(s.pos, move, s.undoStack[ply].CapturedPiece)
		}

		// Late-move reduction: search quiet moves explored late in the
		// ordering, far from the frontier, at reduced depth; if the
		// reduced search beats alpha, re-search at full depth.
		reduction := 0
		if depth >= 3 && moveCount > 3 && quiet && !inCheck {
			reduction = lmrReductions[min(depth, 63)][min(moveCount, 63)]
			if pvNode && reduction > 0 {
				reduction--
			}
		}

		var score int
		if moveCount == 1 {
			score = -s.negamax(depth-1, ply+1, -beta, -alpha, true)
		} else {
			score = -s.negamax(depth-1-reduction, ply+1, -alpha-1, -alpha, true)
			if score > alpha && (reduction > 0 || score < beta) {
				score = -s.negamax(depth-1, ply+1, -beta, -alpha, true)
			}
		}

		// Unmake move
		s.posHistory = s.posHistory[:len(s.posHistory)-1]
		if s.useNNUE && s.nnueModel != nil {
			s.nnueModel.Pop()
		}
		s.pos.UnmakeMove(move, s.undoStack[ply])

		// Check for stop
		if s.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move

			if score > alpha {
				alpha = score
				flag = TTExact

				// Update PV
				s.pv.moves[ply][ply] = move
				for j := ply + 1; j < s.pv.length[ply+1]; j++ {
					s.pv.moves[ply][j] = s.pv.moves[ply+1][j]
				}
				s.pv.length[ply] = s.pv.length[ply+1]
			}
		}

		// Beta cutoff
		if score >= beta {
			// Store in TT
			s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(score, ply), TTLowerBound, bestMove)

			// Update killer and history for quiet moves
			if quiet {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(move, depth, true)
			}

			return score
		}
	}

	if moveCount == 0 {
		// Every pseudo-legal move was filtered as invalid during make;
		// treat as no legal moves.
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	// Store in TT
	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	return bestScore
}

// excludeMoves returns a copy of moves with every move in excluded removed.
func excludeMoves(moves *board.MoveList, excluded []board.Move) *board.MoveList {
	filtered := board.NewMoveList()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		skip := false
		for _, e := range excluded {
			if m == e {
				skip = true
				break
			}
		}
		if !skip {
			filtered.Add(m)
		}
	}
	return filtered
}

// quiescence searches only noisy moves (captures, promotions, and every
// legal move when in check) to avoid the horizon effect.
func (s *Searcher) quiescence(ply int, alpha, beta int) int {
	// Depth limit to prevent infinite recursion
	const maxQuiescencePly = 32
	if ply >= MaxPly || ply > maxQuiescencePly {
		return s.evaluate()
	}

	// Check for stop
	if s.stopFlag.Load() {
		return 0
	}

	s.nodes++

	inCheck := s.pos.InCheck()

	var standPat int
	if !inCheck {
		standPat = s.evaluate()

		if standPat >= beta {
			return beta
		}
		if standPat > alpha {
			alpha = standPat
		}

		// Delta pruning: if we're very far behind, prune
		bigDelta := QueenValue
		if standPat+bigDelta < alpha {
			return alpha
		}
	} else {
		// In check: no standing pat, search every legal reply (evasions).
		alpha = max(alpha, -MateScore+ply)
	}

	var moves *board.MoveList
	if inCheck {
		moves = s.pos.GenerateLegalMoves()
		if moves.Len() == 0 {
			return -MateScore + ply
		}
	} else {
		moves = s.pos.GenerateCaptures()
	}

	scores := s.orderer.ScoreMoves(s.pos, moves, ply, board.NoMove)

	legalMoves := 0
	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, scores, i)
		move := moves.Get(i)

		// SEE-prune and delta-prune captures once we're not in check:
		// a capture that loses material after the full exchange sequence
		// can't possibly raise alpha here.
		if !inCheck && !move.IsPromotion() {
			seeScore := SEE(s.pos, move)
			if seeScore < 0 {
				continue
			}
			if standPat+seeScore+200 < alpha {
				continue
			}
		}

		// Make move
		undo := s.pos.MakeMove(move)

		// Skip if move was invalid (no piece at from square)
		if !undo.Valid {
			continue
		}
		legalMoves++
		if s.useNNUE && s.nnueModel != nil {
			s.nnueModel.Push()
			s.nnueModel.Update(s.pos, move, undo.CapturedPiece)
		}

		// Recursive search
		score := -s.quiescence(ply+1, -beta, -alpha)

		// Unmake move
		if s.useNNUE && s.nnueModel != nil {
			s.nnueModel.Pop()
		}
		s.pos.UnmakeMove(move, undo)

		if score >= beta {
			return beta
		}

		if score > alpha {
			alpha = score
		}
	}

	if inCheck && legalMoves == 0 {
		return -MateScore + ply
	}

	return alpha
}

// isDraw checks for draw by the 50-move rule, insufficient material, or
// threefold repetition against the recorded position history.
func (s *Searcher) isDraw() bool {
	if s.pos.HalfMoveClock >= 100 {
		return true
	}
	if s.pos.IsInsufficientMaterial() {
		return true
	}

	// Threefold repetition: a position repeats when its Zobrist hash
	// matches an earlier position at the same side to move, within the
	// span the half-move clock allows (a pawn move or capture resets it,
	// so only that many plies back need checking). Below the root the
	// last entry of posHistory is the current position itself, so the scan
	// starts one entry earlier.
	limit := len(s.posHistory)
	if s.pos.HalfMoveClock < limit {
		limit = s.pos.HalfMoveClock
	}
	occurrences := 0
	for i := 2; i <= limit+1; i++ {
		idx := len(s.posHistory) - i
		if idx < 0 {
			break
		}
		if s.posHistory[idx] == s.pos.Hash {
			occurrences++
			if occurrences >= 2 {
				return true
			}
		}
	}

	return false
}

// GetPV returns the principal variation from the last search.
func (s *Searcher) GetPV() []board.Move {
	pv := make([]board.Move, s.pv.length[0])
	for i := 0; i < s.pv.length[0]; i++ {
		pv[i] = s.pv.moves[0][i]
	}
	return pv
}
