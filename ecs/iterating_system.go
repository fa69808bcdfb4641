package ecs

// EntityProcessor is implemented by systems that handle one entity at a time.
type EntityProcessor interface {
	Process(entity Entity, elapsed float64)
}

// IteratingSystem is a Base whose batch hook calls Process for every member,
// in list order. Embed it and override Process.
//
// There is no fault isolation between entities: if Process panics on one entity,
// the remaining entities are not processed this frame.
type IteratingSystem struct {
	Base
}

// ProcessEntities calls Process for each entity, left to right.
func (s *IteratingSystem) ProcessEntities(entities []Entity, elapsed float64) {
	p := s.processor()
	for _, entity := range entities {
		p.Process(entity, elapsed)
	}
}

// Process handles a single entity. The default does nothing.
func (s *IteratingSystem) Process(entity Entity, elapsed float64) {}

func (s *IteratingSystem) processor() EntityProcessor {
	if p, ok := s.self.(EntityProcessor); ok {
		return p
	}
	return s
}
