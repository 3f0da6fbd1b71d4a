package nnue

import "github.com/hailam/chessplay/internal/board"

// MaxStackDepth bounds the accumulator stack; deeper than any realistic
// search tree (quiescence included).
const MaxStackDepth = 160

// Accumulator holds the hidden layer's pre-activation vector (bias already
// folded in) plus a one-deep cache of the position last evaluated from it,
// so a repeated Evaluate call against an unchanged position skips the
// output pass entirely.
type Accumulator struct {
	Values [HiddenSize]float64

	Computed bool

	cachedHash  uint64
	cachedScore int
	hasCache    bool
}

// AccumulatorStack holds one accumulator per search ply, so Push/Pop around
// MakeMove/UnmakeMove gives each ply its own incrementally-updated copy
// without recomputing from scratch.
type AccumulatorStack struct {
	stack [MaxStackDepth]Accumulator
	top   int
}

// NewAccumulatorStack creates a new, empty accumulator stack.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{}
}

// Push copies the current accumulator down one ply so the copy can be
// updated incrementally for the move about to be made.
func (s *AccumulatorStack) Push() {
	if s.top < MaxStackDepth-1 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop discards the current ply's accumulator, returning to the parent's.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator for the current ply.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Reset clears the stack for a new game.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0] = Accumulator{}
}

// ComputeFull rebuilds the accumulator from every occupied square, the
// fallback path used when there is no valid incremental predecessor.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	copy(acc.Values[:], net.B1[:])
	for _, idx := range ActiveFeatures(pos) {
		row := &net.W1[idx]
		for j := 0; j < HiddenSize; j++ {
			acc.Values[j] += row[j]
		}
	}
	acc.Computed = true
	acc.hasCache = false
}

// ApplyDiff updates the accumulator in place by subtracting the rows for
// every feature that turned off and adding the rows for every feature that
// turned on.
func (acc *Accumulator) ApplyDiff(diff FeatureDiff, net *Network) {
	for _, idx := range diff.Off {
		row := &net.W1[idx]
		for j := 0; j < HiddenSize; j++ {
			acc.Values[j] -= row[j]
		}
	}
	for _, idx := range diff.On {
		row := &net.W1[idx]
		for j := 0; j < HiddenSize; j++ {
			acc.Values[j] += row[j]
		}
	}
	acc.hasCache = false
}
