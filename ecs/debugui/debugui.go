// Package debugui provides immediate-mode GUI integration for ECS applications using Dear ImGui.
// It manages ImGui rendering and input state through ECS components and systems.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecsys/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func()
}

// InputState tracks whether Dear ImGui is consuming mouse or keyboard input.
type InputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiSystem defers the render function of every ImguiItem member to the end
// of the frame, and samples the ImGui input capture state before doing so.
type ImguiSystem struct {
	ecs.IteratingSystem
	Items ecs.ComponentType[ImguiItem]

	// Input reads the capture state. Nil means the live ImGui IO.
	Input func() InputState

	state InputState
}

// NewImguiSystem registers ImguiItem with the world and attaches a system
// interested in it.
func NewImguiSystem(world *ecs.World) (*ImguiSystem, error) {
	items, err := ecs.RegisterComponent[ImguiItem](world)
	if err != nil {
		return nil, err
	}

	system := &ImguiSystem{Items: items}
	if err := world.AddSystem(system, items.ID()); err != nil {
		return nil, err
	}
	return system, nil
}

// InputState returns the capture state sampled at the start of the last frame.
func (s *ImguiSystem) InputState() InputState {
	return s.state
}

func (s *ImguiSystem) OnBegin() {
	if s.Input != nil {
		s.state = s.Input()
		return
	}
	io := imgui.CurrentIO()
	s.state = InputState{
		WantCaptureMouse:    io.WantCaptureMouse(),
		WantCaptureKeyboard: io.WantCaptureKeyboard(),
	}
}

func (s *ImguiSystem) Process(entity ecs.Entity, elapsed float64) {
	w := s.World()
	item, ok := ecs.Get(w, entity, s.Items)
	if !ok || item.Render == nil {
		return
	}
	w.Commands().Defer(item.Render)
}

// Spawn creates an entity carrying render.
func (s *ImguiSystem) Spawn(render func()) (ecs.Entity, error) {
	w := s.World()
	entity := w.CreateEntity()
	if err := ecs.Add(w, entity, s.Items, ImguiItem{Render: render}); err != nil {
		w.DestroyEntity(entity)
		return 0, err
	}
	return entity, nil
}
