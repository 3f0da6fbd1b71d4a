package engine

import (
	"time"

	"github.com/hailam/chessplay/internal/board"
	"github.com/hailam/chessplay/internal/storage"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search.
type SearchLimits struct {
	Depth    int           // Maximum depth (0 = no limit)
	Nodes    uint64        // Maximum nodes (0 = no limit)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
	MultiPV  int           // Number of principal variations to find (0 or 1 = single best move)
}

// SearchResult contains the result of a single PV search.
type SearchResult struct {
	Move  board.Move
	Score int
	PV    []board.Move
	Depth int
}

// Difficulty represents the engine's playing strength level.
type Difficulty int

const (
	Easy   Difficulty = iota // up to 3 ply, 500ms
	Medium                   // up to 7 ply, 1s
	Hard                     // Maximum strength, 3s
)

// DifficultySettings maps difficulty to search limits.
var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 7, MoveTime: 1 * time.Second},
	Hard:   {Depth: 40, MoveTime: 3 * time.Second}, // Max strength (time-limited)
}

// Engine is the chess engine: a single transposition table shared by one
// root search at a time (see the concurrency model for why only the root
// search itself is parallel-ready, not the worker count).
type Engine struct {
	tt       *TranspositionTable
	searcher *Searcher

	difficulty Difficulty

	// Position history for repetition detection.
	rootPosHashes []uint64

	// NNUE evaluation.
	useNNUE   bool
	nnueModel *NNUEEvaluator

	// Optional disk-backed analysis cache; nil when not opened.
	cache *storage.Store

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table
// size in MB.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)

	return &Engine{
		tt:         tt,
		searcher:   NewSearcher(tt),
		difficulty: Medium,
	}
}

// SetDifficulty sets the engine difficulty.
func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// SetCache attaches a disk-backed analysis cache. Passing nil disables it.
func (e *Engine) SetCache(store *storage.Store) {
	e.cache = store
}

// SetPositionHistory sets the position history for repetition detection.
// This should be called before Search() with hashes from the game's move
// history.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootPosHashes = make([]uint64, len(hashes))
	copy(e.rootPosHashes, hashes)
	e.searcher.SetRootHistory(hashes)
}

// Search finds the best move for the given position using the engine's
// configured difficulty.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// warmStartFromCache seeds the transposition table with a previously
// cached analysis result for pos, if the disk cache has one.
func (e *Engine) warmStartFromCache(pos *board.Position) {
	if e.cache == nil {
		return
	}
	entry, found, err := e.cache.GetCache(pos.Hash)
	if err != nil || !found {
		return
	}
	flag := TTExact
	switch entry.Bound {
	case storage.BoundLower:
		flag = TTLowerBound
	case storage.BoundUpper:
		flag = TTUpperBound
	}
	e.tt.Store(pos.Hash, entry.Depth, entry.Score, flag, board.Move(entry.Best))
}

// saveToCache persists the final root result so a future process can
// warm-start from it.
func (e *Engine) saveToCache(pos *board.Position, depth, score int, move board.Move) {
	if e.cache == nil || move == board.NoMove {
		return
	}
	e.cache.PutCache(pos.Hash, storage.CacheEntry{
		Depth: depth,
		Score: score,
		Bound: storage.BoundExact,
		Best:  uint16(move),
	})
}

// runWithDeadline runs fn while a background timer forces the searcher to
// stop once maxTime elapses, mirroring the timer-thread/stop-flag model: a
// search is cancelled by someone other than itself setting an atomic flag
// that every recursion polls.
func (e *Engine) runWithDeadline(maxTime time.Duration) (cancel func()) {
	if maxTime <= 0 || maxTime >= time.Hour {
		return func() {}
	}
	done := make(chan struct{})
	timer := time.AfterFunc(maxTime, func() {
		e.searcher.Stop()
	})
	go func() {
		<-done
		timer.Stop()
	}()
	return func() { close(done) }
}

// SearchWithLimits finds the best move under fixed depth/time/node limits.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.tt.NewSearch()
	e.warmStartFromCache(pos)

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	tm := NewTimeManager()
	if limits.MoveTime > 0 {
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
	} else {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
	}
	tm.startTime = time.Now()

	cancel := e.runWithDeadline(tm.maximumTime)
	defer cancel()

	move, score := e.searcher.IterativeDeepening(pos, maxDepth, tm, func(r IterativeDeepeningResult) {
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    r.Depth,
				Score:    r.Score,
				Nodes:    r.Nodes,
				Time:     r.Time,
				PV:       r.PV,
				HashFull: e.tt.HashFull(),
			})
		}
	})

	e.saveToCache(pos, maxDepth, score, move)
	return move
}

// SearchWithUCILimits finds the best move using UCI time controls
// (wtime/btime/winc/binc and friends).
func (e *Engine) SearchWithUCILimits(pos *board.Position, limits UCILimits, ply int) board.Move {
	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)

	e.tt.NewSearch()
	e.warmStartFromCache(pos)

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	cancel := e.runWithDeadline(tm.maximumTime)
	defer cancel()

	var lastMove board.Move
	var stability int

	move, score := e.searcher.IterativeDeepening(pos, maxDepth, tm, func(r IterativeDeepeningResult) {
		if len(r.PV) > 0 {
			if r.PV[0] == lastMove {
				stability++
			} else {
				stability = 0
				lastMove = r.PV[0]
			}
		}
		tm.AdjustForStability(stability)

		if limits.Nodes > 0 && r.Nodes >= limits.Nodes {
			e.searcher.Stop()
		}

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    r.Depth,
				Score:    r.Score,
				Nodes:    r.Nodes,
				Time:     r.Time,
				PV:       r.PV,
				HashFull: e.tt.HashFull(),
			})
		}
	})

	e.saveToCache(pos, maxDepth, score, move)
	return move
}

// SearchMultiPV finds multiple principal variations for analysis, by
// repeatedly searching with the previously found best moves excluded from
// the root.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []SearchResult {
	numPV := limits.MultiPV
	if numPV <= 0 {
		numPV = 1
	}

	results := make([]SearchResult, 0, numPV)
	excludedMoves := make([]board.Move, 0, numPV)

	for i := 0; i < numPV; i++ {
		move, score, pv, depth := e.searchWithExclusions(pos, limits, excludedMoves)
		if move == board.NoMove {
			break
		}

		results = append(results, SearchResult{
			Move:  move,
			Score: score,
			PV:    pv,
			Depth: depth,
		})
		excludedMoves = append(excludedMoves, move)
	}

	// Sort results by score (descending).
	for i := 0; i < len(results)-1; i++ {
		maxIdx := i
		for j := i + 1; j < len(results); j++ {
			if results[j].Score > results[maxIdx].Score {
				maxIdx = j
			}
		}
		if maxIdx != i {
			results[i], results[maxIdx] = results[maxIdx], results[i]
		}
	}

	return results
}

// searchWithExclusions searches for the best move, excluding certain moves
// at the root (used by Multi-PV to peel off already-found lines).
func (e *Engine) searchWithExclusions(pos *board.Position, limits SearchLimits, excluded []board.Move) (board.Move, int, []board.Move, int) {
	e.searcher.Reset()
	e.searcher.SetExcludedMoves(excluded)
	e.tt.NewSearch()

	startTime := time.Now()
	var bestMove board.Move
	var bestScore int
	var bestDepth int

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	var deadline time.Time
	if limits.MoveTime > 0 {
		deadline = startTime.Add(limits.MoveTime)
	}

	for depth := 1; depth <= maxDepth; depth++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		move, score := e.searcher.Search(pos, depth)

		if e.searcher.IsStopped() {
			break
		}

		if move != board.NoMove {
			bestMove = move
			bestScore = score
			bestDepth = depth
		}

		if score > MateScore-100 || score < -MateScore+100 {
			break
		}
	}

	pv := e.searcher.GetPV()
	e.searcher.SetExcludedMoves(nil)

	return bestMove, bestScore, pv, bestDepth
}

// Stop stops the current search.
func (e *Engine) Stop() {
	e.searcher.Stop()
}

// Clear clears the transposition table and move-ordering state.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.searcher.ClearOrderer()
}

// Perft performs a perft test (for debugging move generation).
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}

	return nodes
}

// Evaluate returns the static classical evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// LoadNNUE loads an NNUE weights file.
func (e *Engine) LoadNNUE(weightsPath string) error {
	model, err := NewNNUEEvaluator(weightsPath)
	if err != nil {
		return err
	}
	e.nnueModel = model
	e.searcher.SetNNUE(model)
	return nil
}

// SetUseNNUE enables or disables NNUE evaluation (a network must already
// be loaded via LoadNNUE).
func (e *Engine) SetUseNNUE(use bool) {
	e.useNNUE = use
	if use && e.nnueModel != nil {
		e.searcher.SetNNUE(e.nnueModel)
	} else {
		e.searcher.SetNNUE(nil)
	}
}

// UseNNUE returns whether NNUE evaluation is enabled.
func (e *Engine) UseNNUE() bool {
	return e.useNNUE
}

// HasNNUE returns whether an NNUE network is loaded.
func (e *Engine) HasNNUE() bool {
	return e.nnueModel != nil
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100

	return sign + itoa(pawns) + "." + itoa(centipawns)
}

// itoa is a tiny integer-to-string helper (avoids pulling in fmt here).
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
