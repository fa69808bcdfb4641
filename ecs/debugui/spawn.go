package debugui

// SpawnDebugUI creates one ImguiItem entity per debug panel. The panels render
// when the ImguiSystem's deferred commands are flushed.
func SpawnDebugUI(system *ImguiSystem) error {
	world := system.World()
	timer := NewFrameTimer()

	inspector := NewSystemInspectorComponent()
	browser := NewMemberBrowserComponent(100)
	stats := NewPerformanceStatsComponent(120)
	tester := NewMaskTesterComponent()

	panels := []func(){
		func() { browser.Select(inspector.Render(world)) },
		func() { browser.Render(world) },
		func() { stats.Render(world, timer.GetDeltaTime()) },
		func() { tester.Render(world) },
	}
	for _, render := range panels {
		if _, err := system.Spawn(render); err != nil {
			return err
		}
	}
	return nil
}
