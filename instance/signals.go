package instance

import (
	"context"
	"reflect"

	"github.com/zoobzio/capitan"
)

// Signals for instance events.
var (
	SignalSingletonCreated = capitan.NewSignal("morph.instance.singleton", "Singleton instance created")
	SignalInstanceFailed   = capitan.NewSignal("morph.instance.failed", "No construction strategy for type")
)

// Keys for typed event data.
var (
	KeyTypeName = capitan.NewStringKey("type_name")
	KeyError    = capitan.NewErrorKey("error")
)

// emitSingletonCreated emits an event when a singleton value is first built.
func emitSingletonCreated(ctx context.Context, t reflect.Type) {
	capitan.Emit(ctx, SignalSingletonCreated,
		KeyTypeName.Field(t.String()),
	)
}

// emitInstanceFailed emits an event when resolution fails for a type.
func emitInstanceFailed(ctx context.Context, t reflect.Type, err error) {
	capitan.Error(ctx, SignalInstanceFailed,
		KeyTypeName.Field(t.String()),
		KeyError.Field(err),
	)
}
