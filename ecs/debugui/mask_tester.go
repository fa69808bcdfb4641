package debugui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecsys/ecs"
)

type MaskMatch struct {
	// Entities whose mask contains the tested one.
	Entities int
	// Systems an entity with exactly the tested components would belong to.
	Systems []string
}

func NewMaskTesterComponent() MaskTesterComponent {
	return MaskTesterComponent{
		selected: make(map[ecs.ComponentID]bool),
	}
}

// MatchMask reports which entities and systems the given component set matches.
func MatchMask(world *ecs.World, ids []ecs.ComponentID) (MaskMatch, error) {
	cfg := world.Config()
	mask := ecs.NewMask(cfg.MaxComponents, cfg.FastMaskThreshold)
	for _, id := range ids {
		if err := mask.Set(id); err != nil {
			return MaskMatch{}, err
		}
	}

	var match MaskMatch
	for e := range world.Entities() {
		if m, ok := world.ComponentMask(e); ok && m.Contains(mask) {
			match.Entities++
		}
	}
	for _, system := range world.Systems() {
		if mask.Contains(system.Mask()) {
			match.Systems = append(match.Systems, system.Name())
		}
	}
	return match, nil
}

func (mt *MaskTesterComponent) Render(world *ecs.World) {
	if !imgui.BeginV("Mask Tester", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	imgui.Text("Select Components:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		mt.selected = make(map[ecs.ComponentID]bool)
	}

	var ids []ecs.ComponentID
	for i := range world.ComponentCount() {
		id := ecs.ComponentID(i)
		selected := mt.selected[id]
		if imgui.Checkbox(fmt.Sprintf("%s##%d", world.ComponentName(id), i), &selected) {
			if selected {
				mt.selected[id] = true
			} else {
				delete(mt.selected, id)
			}
		}
		if selected {
			ids = append(ids, id)
		}
	}

	imgui.Separator()

	if len(ids) == 0 {
		imgui.Text("No components selected")
		imgui.End()
		return
	}

	match, err := MatchMask(world, ids)
	if err != nil {
		imgui.Text(err.Error())
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Matching Entities: %d", match.Entities))
	if imgui.TreeNodeStr(fmt.Sprintf("Matching Systems (%d)", len(match.Systems))) {
		for _, name := range match.Systems {
			imgui.BulletText(name)
		}
		imgui.TreePop()
	}

	imgui.End()
}
