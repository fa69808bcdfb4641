package ecs

import "github.com/rotisserie/eris"

var (
	// ErrComponentOutOfRange is returned when a component id does not fit the
	// configured mask capacity. It is a configuration error.
	ErrComponentOutOfRange = eris.New("component id out of range")

	// ErrInvalidConfig is returned by Config.Validate and NewWorld.
	ErrInvalidConfig = eris.New("invalid config")

	// ErrDeadEntity is returned when operating on a destroyed or unknown entity.
	ErrDeadEntity = eris.New("entity is not alive")

	// ErrSystemAlreadyRegistered is returned when a system is attached twice.
	ErrSystemAlreadyRegistered = eris.New("system already registered")

	// ErrUnknownComponent is returned for component ids the world never registered.
	ErrUnknownComponent = eris.New("component not registered")
)
