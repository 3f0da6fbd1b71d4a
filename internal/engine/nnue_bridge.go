package engine

import (
	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/nnue"
)

// NNUEEvaluator bridges the nnue package's incremental accumulator-based
// evaluator into the shape the searcher wants: evaluate the current
// position, and Push/Update/Pop around make/unmake so the accumulator
// tracks the search tree instead of being rebuilt from scratch every node.
type NNUEEvaluator struct {
	eval *nnue.Evaluator
}

// NewNNUEEvaluator loads (or, with an empty path, randomly initializes) an
// NNUE network and wraps it for search use.
func NewNNUEEvaluator(weightsFile string) (*NNUEEvaluator, error) {
	e, err := nnue.NewEvaluator(weightsFile)
	if err != nil {
		return nil, err
	}
	return &NNUEEvaluator{eval: e}, nil
}

// Evaluate returns the NNUE score for pos from the side to move's
// perspective.
func (n *NNUEEvaluator) Evaluate(pos *board.Position) int {
	return n.eval.Evaluate(pos)
}

// Push saves accumulator state before a move is made.
func (n *NNUEEvaluator) Push() {
	n.eval.Push()
}

// Pop restores accumulator state after a move is unmade.
func (n *NNUEEvaluator) Pop() {
	n.eval.Pop()
}

// Update incrementally updates the accumulator for a move already applied
// to pos.
func (n *NNUEEvaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {
	n.eval.Update(pos, m, captured)
}

// Reset clears the accumulator stack for a new game or new root search.
func (n *NNUEEvaluator) Reset() {
	n.eval.Reset()
}
