package scene

import "errors"

// Scene manager errors. Detail is added by wrapping; a missing component type
// surfaces as registry.ErrMissingTypeRegistry.
var (
	ErrNoTargetScene        = errors.New("no target scene")
	ErrNoSceneComponent     = errors.New("entity has no scene component")
	ErrNoSceneDataComponent = errors.New("entity has no scene data component")
	ErrSerializeFailure     = errors.New("scene serialization failed")
	ErrLoadFailure          = errors.New("scene load failed")
	ErrIO                   = errors.New("scene i/o failed")
	ErrInput                = errors.New("invalid input")
	ErrDuplicateScene       = errors.New("scene name already loaded")
	ErrSceneNotFound        = errors.New("scene not loaded")
	ErrNoSavePath           = errors.New("scene has no save path")
)
