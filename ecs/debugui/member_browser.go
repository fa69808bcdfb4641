package debugui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecsys/ecs"
)

type EntityInfo struct {
	Entity     ecs.Entity
	Components []string
}

func NewMemberBrowserComponent(maxEntitiesPerPage int) MemberBrowserComponent {
	return MemberBrowserComponent{
		selectedSystem:     -1,
		maxEntitiesPerPage: max(maxEntitiesPerPage, 1),
	}
}

// CollectMembers describes the entities of the system at index, in membership
// order. A negative index lists every live entity instead.
func CollectMembers(world *ecs.World, index int, filter string) []EntityInfo {
	var entities []ecs.Entity
	if index >= 0 {
		systems := world.Systems()
		if index >= len(systems) {
			return nil
		}
		entities = systems[index].Members()
	} else {
		for e := range world.Entities() {
			entities = append(entities, e)
		}
	}

	filterLower := strings.ToLower(filter)
	infos := make([]EntityInfo, 0, len(entities))
	for _, e := range entities {
		mask, ok := world.ComponentMask(e)
		if !ok {
			continue
		}
		info := EntityInfo{Entity: e, Components: componentNames(world, mask)}

		if filterLower != "" &&
			!strings.Contains(e.String(), filterLower) &&
			!strings.Contains(strings.ToLower(strings.Join(info.Components, " ")), filterLower) {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// Select shows the members of the system at index. Use -1 for all entities.
func (mb *MemberBrowserComponent) Select(index int) {
	if index != mb.selectedSystem {
		mb.selectedSystem = index
		mb.currentPage = 0
	}
}

func (mb *MemberBrowserComponent) Render(world *ecs.World) {
	if !imgui.BeginV("Member Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	systems := world.Systems()
	if mb.selectedSystem >= 0 && mb.selectedSystem < len(systems) {
		imgui.Text(fmt.Sprintf("System: %s", systems[mb.selectedSystem].Name()))
	} else {
		imgui.Text("All entities")
	}

	imgui.InputTextWithHint("##search", "Search...", &mb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		mb.filterText = ""
	}
	imgui.SameLine()
	if imgui.Button("Show All") {
		mb.Select(-1)
	}

	entities := CollectMembers(world, mb.selectedSystem, mb.filterText)
	totalPages := max((len(entities)+mb.maxEntitiesPerPage-1)/mb.maxEntitiesPerPage, 1)
	mb.currentPage = min(mb.currentPage, totalPages-1)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsScrollY
	if imgui.BeginTableV("MemberTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		startIdx := mb.currentPage * mb.maxEntitiesPerPage
		endIdx := min(startIdx+mb.maxEntitiesPerPage, len(entities))

		for _, info := range entities[startIdx:endIdx] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := mb.selectedEntity == info.Entity
			if imgui.SelectableBoolV(info.Entity.String(), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				mb.selectedEntity = info.Entity
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(info.Components, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", len(info.Components)))
		}

		imgui.EndTable()
	}

	if len(entities) > mb.maxEntitiesPerPage {
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", mb.currentPage+1, totalPages, len(entities)))
		imgui.SameLine()
		if imgui.Button("Prev") && mb.currentPage > 0 {
			mb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && mb.currentPage < totalPages-1 {
			mb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(entities)))
	}

	imgui.End()
}

func (mb *MemberBrowserComponent) SelectedEntity() ecs.Entity {
	return mb.selectedEntity
}
