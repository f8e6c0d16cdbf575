package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar/internal/perception"
)

const coneArea = 640 * 480 * 0.01

func TestConeSlalom_SteersAroundCones(t *testing.T) {
	b, finder, clock := newTestBuilder(t)
	c := b.ConeSlalom(perception.Orange, perception.Purple, 0.14)
	snap := perception.Snapshot{ColorImage: vga}

	finder.set(perception.CropBottomThreeQuarters, contourAt(perception.Orange, perception.CropBottomThreeQuarters, 480, coneArea))
	clock.Advance(tick)
	cmd := c.Execute(snap)
	assert.Equal(t, 0.15, cmd.Speed)
	assert.InDelta(t, 0.255, cmd.Angle, 1e-12, "right cone ahead-right: keep it on the left")

	finder.set(perception.CropBottomThreeQuarters, contourAt(perception.Orange, perception.CropBottomThreeQuarters, 160, coneArea))
	clock.Advance(tick)
	assert.InDelta(t, 0.005, c.Execute(snap).Angle, 1e-12, "only the size bias applies left of centre")
}

func TestConeSlalom_SwitchesTargetAfterDebounce(t *testing.T) {
	b, finder, clock := newTestBuilder(t)
	c := b.ConeSlalom(perception.Orange, perception.Purple, 0.14)
	snap := perception.Snapshot{ColorImage: vga}
	require.Equal(t, perception.Orange, c.Target())

	finder.set(perception.CropBottomThreeQuarters, contourAt(perception.Orange, perception.CropBottomThreeQuarters, 480, coneArea))
	for i := 0; i < 5; i++ {
		clock.Advance(tick)
		c.Execute(snap)
	}

	finder.clear(perception.CropBottomThreeQuarters)
	for elapsed := 50 * time.Millisecond; elapsed < 300*time.Millisecond; elapsed += 50 * time.Millisecond {
		clock.Advance(50 * time.Millisecond)
		cmd := c.Execute(snap)
		require.Equal(t, 0.0, cmd.Angle, "unconfirmed loss at %v", elapsed)
		require.Equal(t, perception.Orange, c.Target())
	}

	clock.Advance(50 * time.Millisecond)
	cmd := c.Execute(snap)
	assert.Equal(t, perception.Purple, c.Target())
	assert.Equal(t, -0.14, cmd.Angle)
	assert.Equal(t, 1, c.ConesSeen())

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, -0.14, c.Execute(snap).Angle, "keeps swinging left")
	assert.Equal(t, 1, c.ConesSeen(), "no double count while searching")
}

func TestConeSlalom_FullWeave(t *testing.T) {
	b, finder, clock := newTestBuilder(t)
	c := b.ConeSlalom(perception.Orange, perception.Purple, 0.14)
	snap := perception.Snapshot{ColorImage: vga}

	pass := func(color perception.Color, x int) float64 {
		finder.set(perception.CropBottomThreeQuarters, contourAt(color, perception.CropBottomThreeQuarters, x, coneArea))
		clock.Advance(tick)
		angle := c.Execute(snap).Angle
		finder.clear(perception.CropBottomThreeQuarters)
		clock.Advance(400 * time.Millisecond)
		c.Execute(snap)
		return angle
	}

	assert.InDelta(t, 0.255, pass(perception.Orange, 480), 1e-12)
	assert.Equal(t, perception.Purple, c.Target())
	assert.InDelta(t, -0.255, pass(perception.Purple, 160), 1e-12)
	assert.Equal(t, perception.Orange, c.Target())
	assert.Equal(t, 2, c.ConesSeen())
}

func TestConeSlalom_NothingSeenYet(t *testing.T) {
	b, _, clock := newTestBuilder(t)
	c := b.ConeSlalom(perception.Orange, perception.Purple, 0.14)

	clock.Advance(time.Second)
	assert.Equal(t, Command{Speed: 0.15}, c.Execute(perception.Snapshot{ColorImage: vga}))
	assert.Equal(t, perception.Orange, c.Target())
}

func TestConeSlalom_Next(t *testing.T) {
	b, _, _ := newTestBuilder(t)
	c := b.ConeSlalom(perception.Orange, perception.Purple, 0.14)
	assert.Same(t, c, c.Next(perception.Snapshot{}))

	c.conesSeen = b.params.ConeThreshold
	assert.Equal(t, KindLineFollowing, c.Next(perception.Snapshot{}).Kind())
	assert.Equal(t, KindBraking, c.Next(perception.Snapshot{Fiducials: []int{9}}).Kind())
}
