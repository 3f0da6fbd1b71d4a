// Package nnue implements a small NNUE (Efficiently Updatable Neural
// Network) evaluator: 768 binary inputs (color x piece x square), one
// ReLU hidden layer, a single scalar output, with an incrementally
// maintained accumulator.
package nnue

import "github.com/hailam/chessplay/internal/board"

// Evaluator is the NNUE evaluation interface used by the search.
type Evaluator struct {
	net   *Network
	stack *AccumulatorStack
}

// NewEvaluator creates a new NNUE evaluator. If weightsFile is empty, the
// network is initialized with small random weights (for testing only —
// training itself happens offline).
func NewEvaluator(weightsFile string) (*Evaluator, error) {
	net := NewNetwork()

	if weightsFile != "" {
		if err := net.LoadWeights(weightsFile); err != nil {
			return nil, err
		}
	} else {
		net.InitRandom(12345)
	}

	return &Evaluator{
		net:   net,
		stack: NewAccumulatorStack(),
	}, nil
}

// Evaluate returns the NNUE score for pos, in centipawns from White's
// perspective flipped to the side to move, matching the classical
// evaluator's sign convention. If the accumulator's cache still matches
// pos's hash, the cached score is returned directly; otherwise the
// current ply's accumulator is run through the network, after being built
// from scratch only if it has never been computed (callers that move
// through the tree keep it current via Push/Update/Pop).
func (e *Evaluator) Evaluate(pos *board.Position) int {
	acc := e.stack.Current()
	if acc.hasCache && acc.cachedHash == pos.Hash {
		return acc.cachedScore
	}
	if !acc.Computed {
		acc.ComputeFull(pos, e.net)
	}

	raw := e.net.Forward(acc)
	score := raw
	if pos.SideToMove == board.Black {
		score = -raw
	}

	acc.cachedHash = pos.Hash
	acc.cachedScore = score
	acc.hasCache = true
	return score
}

// Push saves accumulator state; call before MakeMove.
func (e *Evaluator) Push() {
	e.stack.Push()
}

// Pop restores the parent ply's accumulator state; call after UnmakeMove.
func (e *Evaluator) Pop() {
	e.stack.Pop()
}

// Refresh forces a full recomputation of the current ply's accumulator.
func (e *Evaluator) Refresh(pos *board.Position) {
	e.stack.Current().ComputeFull(pos, e.net)
}

// Update incrementally updates the current ply's accumulator for a move
// already applied to pos, diffing against the feature set of the position
// one ply up rather than rebuilding from all 64 squares. captured is the
// piece the move captured, or board.NoPiece.
func (e *Evaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {
	acc := e.stack.Current()
	if !acc.Computed {
		acc.ComputeFull(pos, e.net)
		return
	}
	acc.ApplyDiff(Diff(pos, m, captured), e.net)
}

// Reset clears the accumulator stack for a new game.
func (e *Evaluator) Reset() {
	e.stack.Reset()
}
