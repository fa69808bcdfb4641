package ecs_test

import (
	"bytes"
	"context"
	"slices"
	"testing"
	"time"

	"github.com/plus3/ecsys/ecs"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flipCounter counts membership notifications.
type flipCounter struct {
	ecs.Base
	added   int
	removed int
}

func (s *flipCounter) OnAdded(ecs.Entity)   { s.added++ }
func (s *flipCounter) OnRemoved(ecs.Entity) { s.removed++ }

func TestWorldEntities(t *testing.T) {
	t.Run("create and destroy", func(t *testing.T) {
		world, _ := newTestWorld(t)

		e := world.CreateEntity()
		assert.True(t, e.Valid())
		assert.True(t, world.Alive(e))
		assert.Equal(t, 1, world.EntityCount())

		assert.True(t, world.DestroyEntity(e))
		assert.False(t, world.Alive(e))
		assert.False(t, world.DestroyEntity(e))
		assert.Equal(t, 0, world.EntityCount())
	})

	t.Run("slot reuse bumps generation", func(t *testing.T) {
		world, c := newTestWorld(t)

		old := world.CreateEntity()
		require.NoError(t, ecs.Add(world, old, c.Position, Position{X: 1}))
		world.DestroyEntity(old)

		reused := world.CreateEntity()
		assert.Equal(t, old.Index(), reused.Index())
		assert.Equal(t, old.Generation()+1, reused.Generation())
		assert.False(t, world.Alive(old))

		_, ok := ecs.Get(world, reused, c.Position)
		assert.False(t, ok)

		err := ecs.Add(world, old, c.Position, Position{})
		assert.True(t, eris.Is(err, ecs.ErrDeadEntity))
	})

	t.Run("zero entity is never alive", func(t *testing.T) {
		world, _ := newTestWorld(t)
		world.CreateEntity()

		var zero ecs.Entity
		assert.False(t, zero.Valid())
		assert.False(t, world.Alive(zero))
	})

	t.Run("iterate live entities", func(t *testing.T) {
		world, _ := newTestWorld(t)
		a, b, d := world.CreateEntity(), world.CreateEntity(), world.CreateEntity()
		world.DestroyEntity(b)

		assert.Equal(t, []ecs.Entity{a, d}, slices.Collect(world.Entities()))

		for e := range world.Entities() {
			assert.Equal(t, a, e)
			break
		}
	})
}

func TestWorldComponents(t *testing.T) {
	t.Run("add get remove", func(t *testing.T) {
		world, c := newTestWorld(t)
		e := world.CreateEntity()

		require.NoError(t, ecs.Add(world, e, c.Position, Position{X: 3, Y: 4}))
		pos, ok := ecs.Get(world, e, c.Position)
		require.True(t, ok)
		assert.Equal(t, Position{X: 3, Y: 4}, *pos)
		assert.True(t, ecs.Has(world, e, c.Position))

		pos.X = 10
		again, _ := ecs.Get(world, e, c.Position)
		assert.Equal(t, float32(10), again.X)

		require.NoError(t, ecs.Add(world, e, c.Position, Position{X: 7}))
		again, _ = ecs.Get(world, e, c.Position)
		assert.Equal(t, float32(7), again.X)

		assert.True(t, ecs.Remove(world, e, c.Position))
		assert.False(t, ecs.Remove(world, e, c.Position))
		assert.False(t, ecs.Has(world, e, c.Position))
		_, ok = ecs.Get(world, e, c.Position)
		assert.False(t, ok)
	})

	t.Run("register same type twice", func(t *testing.T) {
		world, c := newTestWorld(t)
		again, err := ecs.RegisterComponent[Position](world)
		require.NoError(t, err)
		assert.Equal(t, c.Position.ID(), again.ID())
		assert.Equal(t, 3, world.ComponentCount())
		assert.Equal(t, "ecs_test.Position", world.ComponentName(c.Position.ID()))
	})

	t.Run("registration limit", func(t *testing.T) {
		cfg := ecs.DefaultConfig()
		cfg.MaxComponents = 4
		world, _ := newTestWorldWithConfig(t, cfg)

		_, err := world.RegisterTag("Frozen")
		require.NoError(t, err)

		_, err = world.RegisterTag("Burning")
		assert.True(t, eris.Is(err, ecs.ErrComponentOutOfRange))
		assert.Equal(t, 4, world.ComponentCount())
	})

	t.Run("tags", func(t *testing.T) {
		world, c := newTestWorld(t)
		frozen, err := world.RegisterTag("Frozen")
		require.NoError(t, err)

		e := world.CreateEntity()
		require.NoError(t, world.AddComponent(e, frozen))
		require.NoError(t, world.AddComponent(e, frozen))

		mask, ok := world.ComponentMask(e)
		require.True(t, ok)
		assert.True(t, mask.Has(frozen))
		assert.False(t, mask.Has(c.Position.ID()))

		assert.True(t, world.RemoveComponent(e, frozen))
		assert.False(t, world.RemoveComponent(e, frozen))
	})

	t.Run("untyped add of a data component", func(t *testing.T) {
		world, c := newTestWorld(t)
		e := world.CreateEntity()

		require.NoError(t, world.AddComponent(e, c.Health.ID()))
		h, ok := ecs.Get(world, e, c.Health)
		require.True(t, ok)
		assert.Equal(t, Health{}, *h)
	})

	t.Run("unknown component", func(t *testing.T) {
		world, _ := newTestWorld(t)
		e := world.CreateEntity()

		err := world.AddComponent(e, 20)
		assert.True(t, eris.Is(err, ecs.ErrUnknownComponent))
		assert.False(t, world.RemoveComponent(e, 20))
	})
}

func TestWorldMembership(t *testing.T) {
	t.Run("eligibility flips call exactly one hook", func(t *testing.T) {
		world, c := newTestWorld(t)
		system := &flipCounter{}
		require.NoError(t, world.AddSystem(system, c.Position.ID(), c.Velocity.ID()))

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Position, Position{}))
		assert.Equal(t, 0, system.added)

		require.NoError(t, ecs.Add(world, e, c.Velocity, Velocity{}))
		assert.Equal(t, 1, system.added)

		// Still eligible: no notification.
		require.NoError(t, ecs.Add(world, e, c.Health, Health{}))
		require.NoError(t, ecs.Add(world, e, c.Velocity, Velocity{DX: 1}))
		assert.Equal(t, 1, system.added)
		assert.Equal(t, 0, system.removed)

		ecs.Remove(world, e, c.Velocity)
		assert.Equal(t, 1, system.removed)

		ecs.Remove(world, e, c.Position)
		assert.Equal(t, 1, system.removed)
		assert.Equal(t, 0, system.Len())
	})

	t.Run("destroy leaves every system", func(t *testing.T) {
		world, c := newTestWorld(t)
		movers := &flipCounter{}
		healthy := &flipCounter{}
		everyone := &flipCounter{}
		require.NoError(t, world.AddSystem(movers, c.Position.ID(), c.Velocity.ID()))
		require.NoError(t, world.AddSystem(healthy, c.Health.ID()))
		require.NoError(t, world.AddSystem(everyone))

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Position, Position{}))
		require.NoError(t, ecs.Add(world, e, c.Velocity, Velocity{}))
		require.NoError(t, ecs.Add(world, e, c.Health, Health{}))

		world.DestroyEntity(e)

		for _, s := range []*flipCounter{movers, healthy, everyone} {
			assert.Equal(t, 1, s.added)
			assert.Equal(t, 1, s.removed)
			assert.False(t, s.Has(e))
		}
	})

	t.Run("removed component readable in hook", func(t *testing.T) {
		world, c := newTestWorld(t)
		system := &healthWatcher{health: c.Health}
		require.NoError(t, world.AddSystem(system, c.Health.ID()))

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Health, Health{Current: 42}))
		ecs.Remove(world, e, c.Health)

		assert.Equal(t, []int{42}, system.lastSeen)
	})

	t.Run("component values readable in hook during destroy", func(t *testing.T) {
		world, c := newTestWorld(t)
		system := &healthWatcher{health: c.Health}
		require.NoError(t, world.AddSystem(system, c.Health.ID()))

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Health, Health{Current: 7}))
		require.True(t, world.DestroyEntity(e))

		assert.Equal(t, []int{7}, system.lastSeen)
		_, ok := ecs.Get(world, e, c.Health)
		assert.False(t, ok)
	})

	t.Run("destroyed entity cannot be revived from a hook", func(t *testing.T) {
		world, c := newTestWorld(t)
		system := &reviver{health: c.Health}
		require.NoError(t, world.AddSystem(system, c.Health.ID()))

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Health, Health{Current: 1}))
		require.True(t, world.DestroyEntity(e))

		assert.True(t, eris.Is(system.err, ecs.ErrDeadEntity))
		assert.False(t, system.alive)
		assert.False(t, world.Alive(e))
		assert.Equal(t, 0, world.EntityCount())
		assert.Empty(t, system.Members())
	})

	t.Run("later systems see mask changes made by earlier hooks", func(t *testing.T) {
		for _, stripperFirst := range []bool{true, false} {
			world, _ := newTestWorld(t)
			armed, err := world.RegisterTag("Armed")
			require.NoError(t, err)
			loaded, err := world.RegisterTag("Loaded")
			require.NoError(t, err)

			stripper := &unloader{tag: loaded}
			watcher := &flipCounter{}
			if stripperFirst {
				require.NoError(t, world.AddSystem(stripper, armed, loaded))
				require.NoError(t, world.AddSystem(watcher, loaded))
			} else {
				require.NoError(t, world.AddSystem(watcher, loaded))
				require.NoError(t, world.AddSystem(stripper, armed, loaded))
			}

			e := world.CreateEntity()
			require.NoError(t, world.AddComponent(e, armed))
			require.NoError(t, world.AddComponent(e, loaded))

			mask, ok := world.ComponentMask(e)
			require.True(t, ok)
			assert.True(t, mask.Has(armed))
			assert.False(t, mask.Has(loaded))

			assert.Equal(t, 1, stripper.unloaded)
			assert.False(t, watcher.Has(e))
			assert.Equal(t, watcher.added, watcher.removed)
			assertMembersMatch(t, world)
		}
	})
}

// reviver tries to put the component back on an entity that is leaving.
type reviver struct {
	ecs.Base
	health ecs.ComponentType[Health]
	err    error
	alive  bool
}

func (s *reviver) OnRemoved(entity ecs.Entity) {
	s.alive = s.World().Alive(entity)
	s.err = ecs.Add(s.World(), entity, s.health, Health{Current: 99})
}

// unloader takes tag away from every entity that joins it.
type unloader struct {
	ecs.Base
	tag      ecs.ComponentID
	unloaded int
}

func (s *unloader) OnAdded(entity ecs.Entity) {
	if s.World().RemoveComponent(entity, s.tag) {
		s.unloaded++
	}
}

// assertMembersMatch checks that every member of every system has all of the
// components in the system's mask.
func assertMembersMatch(t *testing.T, world *ecs.World) {
	t.Helper()
	for _, system := range world.Systems() {
		for _, e := range system.Members() {
			mask, ok := world.ComponentMask(e)
			if assert.True(t, ok, "%s holds dead entity %s", system.Name(), e) {
				assert.True(t, mask.Contains(system.Mask()), "%s holds %s with mask %s", system.Name(), e, mask)
			}
		}
	}
}

type healthWatcher struct {
	ecs.Base
	health   ecs.ComponentType[Health]
	lastSeen []int
}

func (s *healthWatcher) OnRemoved(entity ecs.Entity) {
	if h, ok := ecs.Get(s.World(), entity, s.health); ok {
		s.lastSeen = append(s.lastSeen, h.Current)
	}
}

// commandSystem queues world changes from inside its pass.
type commandSystem struct {
	ecs.IteratingSystem
	tag      ecs.ComponentID
	deferred int
}

func (s *commandSystem) Process(entity ecs.Entity, elapsed float64) {
	cmds := s.World().Commands()
	cmds.AddComponent(entity, s.tag)
	cmds.Defer(func() { s.deferred++ })
}

func TestWorldCommands(t *testing.T) {
	t.Run("flushed after all systems", func(t *testing.T) {
		world, c := newTestWorld(t)
		tagged, err := world.RegisterTag("Tagged")
		require.NoError(t, err)

		producer := &commandSystem{tag: tagged}
		consumer := &orderSystem{}
		require.NoError(t, world.AddSystem(producer, c.Position.ID()))
		require.NoError(t, world.AddSystem(consumer, tagged))

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Position, Position{}))

		world.Update(1)
		assert.Empty(t, consumer.calls)
		assert.Equal(t, 1, producer.deferred)
		assert.Equal(t, []ecs.Entity{e}, consumer.Members())
		assert.Equal(t, 0, world.Commands().Len())

		world.Update(1)
		assert.Equal(t, []ecs.Entity{e}, consumer.entities())
	})

	t.Run("destroy skips later operations", func(t *testing.T) {
		world, c := newTestWorld(t)
		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Position, Position{}))

		cmds := world.Commands()
		cmds.AddComponent(e, c.Health.ID())
		cmds.RemoveComponent(e, c.Position.ID())
		cmds.Destroy(e)
		assert.Equal(t, 3, cmds.Len())

		cmds.Flush(world)
		assert.False(t, world.Alive(e))
		assert.Equal(t, 0, cmds.Len())
	})

	t.Run("failed add is logged", func(t *testing.T) {
		var buf bytes.Buffer
		world, err := ecs.NewWorld(ecs.DefaultConfig(), ecs.WithLogger(zerolog.New(&buf)))
		require.NoError(t, err)

		world.Commands().AddComponent(world.CreateEntity(), 9)
		world.Update(1)

		assert.Contains(t, buf.String(), "dropped deferred component add")
	})

	t.Run("defer queued from a defer runs in the same flush", func(t *testing.T) {
		world, _ := newTestWorld(t)
		cmds := world.Commands()

		ran := 0
		cmds.Defer(func() {
			cmds.Defer(func() { ran++ })
		})
		world.Update(1)

		assert.Equal(t, 1, ran)
		assert.Equal(t, 0, cmds.Len())
	})

	t.Run("destroy queued from a removal hook", func(t *testing.T) {
		world, c := newTestWorld(t)
		leader := world.CreateEntity()
		require.NoError(t, ecs.Add(world, leader, c.Health, Health{}))
		follower := world.CreateEntity()

		system := &chainDestroyer{follower: follower}
		require.NoError(t, world.AddSystem(system, c.Health.ID()))

		world.Commands().Destroy(leader)
		world.Update(1)

		assert.False(t, world.Alive(leader))
		assert.False(t, world.Alive(follower))
		assert.Equal(t, 0, world.EntityCount())
		assert.Equal(t, 0, world.Commands().Len())
	})
}

// chainDestroyer queues the follower's destruction when a member leaves.
type chainDestroyer struct {
	ecs.Base
	follower ecs.Entity
}

func (s *chainDestroyer) OnRemoved(ecs.Entity) {
	s.World().Commands().Destroy(s.follower)
}

func TestWorldScheduling(t *testing.T) {
	t.Run("systems run in registration order", func(t *testing.T) {
		world, _ := newTestWorld(t)
		var order []string
		first := &namedSystem{name: "first", order: &order}
		second := &namedSystem{name: "second", order: &order}
		require.NoError(t, world.AddSystem(first))
		require.NoError(t, world.AddSystem(second))

		world.Update(1)
		world.Update(1)

		assert.Equal(t, []string{"first", "second", "first", "second"}, order)
	})

	t.Run("stats", func(t *testing.T) {
		world, c := newTestWorld(t)
		active := &orderSystem{}
		idle := &hookRecorder{}
		require.NoError(t, world.AddSystem(active, c.Position.ID()))
		require.NoError(t, world.AddSystem(idle))
		idle.SetEnabled(false)

		e := world.CreateEntity()
		require.NoError(t, ecs.Add(world, e, c.Position, Position{}))

		world.Update(1)
		world.Update(1)

		stats := world.Stats()
		require.Equal(t, 2, stats.SystemCount)
		assert.Equal(t, int64(2), stats.Frames)
		assert.Equal(t, int64(2), stats.TotalExecutions)

		assert.Equal(t, "orderSystem", stats.Systems[0].Name)
		assert.Equal(t, int64(2), stats.Systems[0].ExecutionCount)
		assert.Equal(t, 1, stats.Systems[0].Members)
		assert.True(t, stats.Systems[0].Enabled)
		assert.LessOrEqual(t, stats.Systems[0].MinDuration, stats.Systems[0].MaxDuration)

		assert.Equal(t, "hookRecorder", stats.Systems[1].Name)
		assert.False(t, stats.Systems[1].Enabled)
		assert.Equal(t, int64(0), stats.Systems[1].ExecutionCount)
		assert.Equal(t, time.Duration(0), stats.Systems[1].MinDuration)
	})

	t.Run("context cancellation in run", func(t *testing.T) {
		world, _ := newTestWorld(t)
		system := &hookRecorder{}
		require.NoError(t, world.AddSystem(system))

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan bool)
		go func() {
			world.Run(ctx, 1*time.Millisecond)
			done <- true
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("world did not stop after context cancellation")
		}

		if len(system.calls) == 0 {
			t.Error("expected system to execute at least once")
		}
	})
}

type namedSystem struct {
	ecs.Base
	name  string
	order *[]string
}

func (s *namedSystem) OnBegin() { *s.order = append(*s.order, s.name) }
