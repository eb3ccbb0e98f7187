package coinflip

import (
	"math/rand/v2"
	"sync"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"go.uber.org/zap"
)

// Source produces one unbiased binary outcome per call.
type Source interface {
	Flip() model.CoinSide
}

// SourceFunc adapts a function to Source.
type SourceFunc func() model.CoinSide

// Flip implements Source.
func (f SourceFunc) Flip() model.CoinSide {
	return f()
}

type randomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a seeded source. Seed 0 uses the runtime's global
// generator.
func NewRandomSource(seed uint64) Source {
	if seed == 0 {
		return SourceFunc(func() model.CoinSide {
			if rand.IntN(2) == 0 {
				return model.Heads
			}
			return model.Tails
		})
	}
	return &randomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *randomSource) Flip() model.CoinSide {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.IntN(2) == 0 {
		return model.Heads
	}
	return model.Tails
}

// Sequence replays forced outcomes in order and lands tails once exhausted.
type Sequence struct {
	mu       sync.Mutex
	outcomes []model.CoinSide
	used     int
}

// NewSequence builds a forced source.
func NewSequence(outcomes ...model.CoinSide) *Sequence {
	return &Sequence{outcomes: append([]model.CoinSide(nil), outcomes...)}
}

// Flip implements Source.
func (s *Sequence) Flip() model.CoinSide {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used >= len(s.outcomes) {
		s.used++
		return model.Tails
	}
	side := s.outcomes[s.used]
	s.used++
	return side
}

// Push appends more forced outcomes.
func (s *Sequence) Push(outcomes ...model.CoinSide) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcomes...)
}

// Used returns how many flips were drawn.
func (s *Sequence) Used() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// Flipper generates coin flips for card abilities and records them on the
// flipping player for display.
type Flipper struct {
	source Source
	logger *zap.Logger
}

// NewFlipper creates a flipper. A nil source falls back to an unseeded random source.
func NewFlipper(source Source, logger *zap.Logger) *Flipper {
	if source == nil {
		source = NewRandomSource(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flipper{source: source, logger: logger}
}

// Flip generates times outcomes atomically and records them under
// player.CoinFlips[cardID], replacing any earlier record for that card.
func (f *Flipper) Flip(player *model.Player, cardID string, times int) model.CoinFlip {
	if times < 1 {
		times = 1
	}
	flip := make(model.CoinFlip, times)
	for i := range flip {
		flip[i] = f.source.Flip()
	}
	if player != nil {
		player.CoinFlips[cardID] = flip
		f.logger.Debug("coin flipped",
			zap.String("player_id", player.ID),
			zap.String("card_id", cardID),
			zap.Int("heads", flip.CountHeads()),
			zap.Int("flips", len(flip)),
		)
	}
	return flip
}

// Last returns the flip recorded for cardID during the current resolution.
func Last(player *model.Player, cardID string) (model.CoinFlip, bool) {
	if player == nil {
		return nil, false
	}
	flip, ok := player.CoinFlips[cardID]
	return flip, ok
}

// Reset clears recorded flips before a new resolution.
func Reset(players ...*model.Player) {
	for _, p := range players {
		if p == nil {
			continue
		}
		for k := range p.CoinFlips {
			delete(p.CoinFlips, k)
		}
	}
}
