package hooks

import (
	"testing"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"github.com/stretchr/testify/assert"
)

func TestWaterfallRunsInRegistrationOrder(t *testing.T) {
	ch := NewWaterfall[[]string, int]("test")
	ch.Register("a", func(acc []string, _ int) []string { return append(acc, "a") })
	ch.Register("b", func(acc []string, _ int) []string { return append(acc, "b") })
	ch.Register("c", func(acc []string, _ int) []string { return append(acc, "c") })

	assert.Equal(t, []string{"a", "b", "c"}, ch.Run(nil, 0))
	assert.Equal(t, []string{"a", "b", "c"}, ch.Owners())
	assert.Equal(t, "test", ch.Name())
}

func TestWaterfallPassesPreviousValue(t *testing.T) {
	ch := NewWaterfall[int, int]("math")
	ch.Register("add", func(acc, ctx int) int { return acc + ctx })
	ch.Register("double", func(acc, _ int) int { return acc * 2 })

	assert.Equal(t, 16, ch.Run(5, 3))
}

func TestWaterfallNoOpHandlerLeavesValue(t *testing.T) {
	ch := NewWaterfall[int, string]("noop")
	ch.Register("mine", func(acc int, ctx string) int {
		if ctx != "mine" {
			return acc
		}
		return acc + 100
	})

	assert.Equal(t, 1, ch.Run(1, "someone-else"))
	assert.Equal(t, 101, ch.Run(1, "mine"))
}

func TestWaterfallUnregister(t *testing.T) {
	ch := NewWaterfall[int, int]("u")
	h := ch.Register("a", func(acc, _ int) int { return acc + 1 })
	ch.Register("b", func(acc, _ int) int { return acc + 10 })
	ch.Register("a", func(acc, _ int) int { return acc + 100 })

	ch.Unregister(h)
	assert.Equal(t, 110, ch.Run(0, 0))

	assert.Equal(t, 1, ch.UnregisterOwner("a"))
	assert.Equal(t, 10, ch.Run(0, 0))
	assert.Equal(t, 1, ch.Len())

	assert.Equal(t, Handle(-1), ch.Register("nil", nil))
}

func TestSeriesCategoryFilter(t *testing.T) {
	s := NewSeries[string]("playCard")
	var calls []string
	s.Register("any", func(ctx string) { calls = append(calls, "any:"+ctx) })
	s.RegisterFor("hermit-only", string(model.CategoryHermit), func(ctx string) { calls = append(calls, "hermit:"+ctx) })
	s.RegisterFor("effect-only", string(model.CategoryEffect), func(ctx string) { calls = append(calls, "effect:"+ctx) })

	s.RunCategory(string(model.CategoryHermit), "x")
	assert.Equal(t, []string{"any:x", "hermit:x"}, calls)

	calls = nil
	s.RunCategory(string(model.CategoryItem), "y")
	assert.Equal(t, []string{"any:y"}, calls)

	calls = nil
	s.Run("z")
	assert.Equal(t, []string{"any:z"}, calls)
}

func TestSeriesUnregister(t *testing.T) {
	s := NewSeries[int]("turnEnd")
	count := 0
	h := s.Register("a", func(int) { count++ })
	s.Register("b", func(int) { count += 10 })

	s.Unregister(h)
	s.Run(0)
	assert.Equal(t, 10, count)
	assert.Equal(t, []string{"b"}, s.Owners())
	assert.Equal(t, 1, s.UnregisterOwner("b"))
	assert.Equal(t, 0, s.Len())
}

func TestPipelineOrderAndUnregister(t *testing.T) {
	p := NewPipeline()
	p.Attack.Register("x", func(acc model.AttackTarget, _ model.DerivedState) model.AttackTarget { return acc })
	p.TurnEnd.Register("x", func(model.TurnContext) {})
	p.PlayCard.RegisterFor("y", string(model.CategoryHermit), func(model.PlayContext) {})

	order := p.Order()
	assert.Equal(t, []string{"x"}, order[ChannelAttack])
	assert.Equal(t, []string{"y"}, order[ChannelPlayCard])
	assert.Empty(t, order[ChannelHermitDeath])

	assert.Equal(t, 2, p.UnregisterOwner("x"))
	assert.Equal(t, 0, p.Attack.Len())
}
