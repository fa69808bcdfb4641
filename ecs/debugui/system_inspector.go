package debugui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/ecsys/ecs"
)

type SystemInfo struct {
	Index      int
	Name       string
	Enabled    bool
	Members    int
	Components []string
	AvgTime    time.Duration
	MaxTime    time.Duration
}

func NewSystemInspectorComponent() SystemInspectorComponent {
	return SystemInspectorComponent{
		selectedSystem: -1,
		sortColumn:     0,
		sortAscending:  true,
	}
}

// CollectSystems describes every registered system, in registration order.
func CollectSystems(world *ecs.World) []SystemInfo {
	stats := world.Stats()
	systems := world.Systems()
	infos := make([]SystemInfo, len(systems))

	for i, system := range systems {
		infos[i] = SystemInfo{
			Index:      i,
			Name:       stats.Systems[i].Name,
			Enabled:    system.Enabled(),
			Members:    system.Len(),
			Components: componentNames(world, system.Mask()),
			AvgTime:    stats.Systems[i].AvgDuration,
			MaxTime:    stats.Systems[i].MaxDuration,
		}
	}
	return infos
}

func componentNames(world *ecs.World, mask ecs.Mask) []string {
	var names []string
	for id := range mask.IDs() {
		name := world.ComponentName(id)
		if name == "" {
			name = fmt.Sprintf("#%d", id)
		}
		names = append(names, name)
	}
	return names
}

// Render draws the system table and returns the index of the selected system,
// or -1 if none is selected.
func (si *SystemInspectorComponent) Render(world *ecs.World) int {
	if !imgui.BeginV("System Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return si.selectedSystem
	}

	infos := CollectSystems(world)
	systems := world.Systems()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("SystemTable", 6, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("System")
		imgui.TableSetupColumn("Enabled")
		imgui.TableSetupColumn("Members")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Avg")
		imgui.TableSetupColumn("Max")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			si.sortColumn = int(spec.ColumnIndex())
			si.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}
		sortSystems(infos, si.sortColumn, si.sortAscending)

		for _, info := range infos {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			if imgui.SelectableBoolV(fmt.Sprintf("%s##%d", info.Name, info.Index), si.selectedSystem == info.Index, imgui.SelectableFlagsNone, imgui.NewVec2(0, 0)) {
				si.selectedSystem = info.Index
			}

			imgui.TableNextColumn()
			enabled := info.Enabled
			if imgui.Checkbox(fmt.Sprintf("##enabled%d", info.Index), &enabled) {
				systems[info.Index].SetEnabled(enabled)
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", info.Members))

			imgui.TableNextColumn()
			if len(info.Components) == 0 {
				imgui.Text("(all entities)")
			} else {
				imgui.Text(strings.Join(info.Components, ", "))
			}

			imgui.TableNextColumn()
			imgui.Text(info.AvgTime.String())

			imgui.TableNextColumn()
			imgui.Text(info.MaxTime.String())
		}

		imgui.EndTable()
	}

	imgui.Text(fmt.Sprintf("Systems: %d", len(infos)))

	imgui.End()
	return si.selectedSystem
}

func sortSystems(infos []SystemInfo, column int, ascending bool) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		var less bool

		switch column {
		case 2:
			less = a.Members < b.Members
		case 4:
			less = a.AvgTime < b.AvgTime
		case 5:
			less = a.MaxTime < b.MaxTime
		default:
			less = a.Index < b.Index
		}

		if !ascending {
			return !less
		}
		return less
	})
}
