package debugui

import "github.com/plus3/ecsys/ecs"

type MemberBrowserComponent struct {
	selectedSystem     int
	selectedEntity     ecs.Entity
	filterText         string
	maxEntitiesPerPage int
	currentPage        int
}

type SystemInspectorComponent struct {
	selectedSystem int
	sortColumn     int
	sortAscending  bool
}

type PerformanceStatsComponent struct {
	historyFrames int
	frameHistory  []float32
	frameIndex    int
}

type MaskTesterComponent struct {
	selected map[ecs.ComponentID]bool
}
