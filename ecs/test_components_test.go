package ecs_test

import (
	"testing"

	"github.com/plus3/ecsys/ecs"
	"github.com/stretchr/testify/require"
)

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int
	Max     int
}

type testComponents struct {
	Position ecs.ComponentType[Position]
	Velocity ecs.ComponentType[Velocity]
	Health   ecs.ComponentType[Health]
}

func newTestWorld(t testing.TB) (*ecs.World, testComponents) {
	t.Helper()
	return newTestWorldWithConfig(t, ecs.DefaultConfig())
}

func newTestWorldWithConfig(t testing.TB, cfg ecs.Config) (*ecs.World, testComponents) {
	t.Helper()

	world, err := ecs.NewWorld(cfg)
	require.NoError(t, err)

	var c testComponents
	c.Position, err = ecs.RegisterComponent[Position](world)
	require.NoError(t, err)
	c.Velocity, err = ecs.RegisterComponent[Velocity](world)
	require.NoError(t, err)
	c.Health, err = ecs.RegisterComponent[Health](world)
	require.NoError(t, err)

	return world, c
}

// hookRecorder logs every lifecycle call in order.
type hookRecorder struct {
	ecs.Base
	calls      []string
	batches    [][]ecs.Entity
	registered int
}

func (s *hookRecorder) OnRegistered() { s.registered++ }
func (s *hookRecorder) OnBegin()      { s.calls = append(s.calls, "begin") }
func (s *hookRecorder) OnEnd()        { s.calls = append(s.calls, "end") }

func (s *hookRecorder) ProcessEntities(entities []ecs.Entity, elapsed float64) {
	s.calls = append(s.calls, "process")
	s.batches = append(s.batches, append([]ecs.Entity(nil), entities...))
}

type processCall struct {
	entity  ecs.Entity
	elapsed float64
}

// orderSystem records Process calls.
type orderSystem struct {
	ecs.IteratingSystem
	calls []processCall
}

func (s *orderSystem) Process(entity ecs.Entity, elapsed float64) {
	s.calls = append(s.calls, processCall{entity: entity, elapsed: elapsed})
}

func (s *orderSystem) entities() []ecs.Entity {
	out := make([]ecs.Entity, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.entity
	}
	return out
}
