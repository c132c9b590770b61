package morph

import (
	"context"
	"reflect"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for engine events.
var (
	SignalTransformStart       = capitan.NewSignal("morph.transform.start", "Root transform beginning")
	SignalTransformComplete    = capitan.NewSignal("morph.transform.complete", "Root transform finished")
	SignalTransformerAdded     = capitan.NewSignal("morph.transformer.registered", "Transformer added to the registry")
	SignalTransformerDropped   = capitan.NewSignal("morph.transformer.dropped", "Transformer ignored, priority already taken")
	SignalTransformerRemoved   = capitan.NewSignal("morph.transformer.removed", "Transformer removed from the registry")
	SignalHandlerResolved      = capitan.NewSignal("morph.handler.resolved", "Metadata handler instance obtained")
	SignalFieldPlanCached      = capitan.NewSignal("morph.fields.cached", "Struct field plan built")
	SignalCapabilityRegistered = capitan.NewSignal("morph.capability.registered", "Encryptor, hasher, masker or codec registered")
)

// Keys for typed event data.
var (
	KeyTypeName   = capitan.NewStringKey("type_name")
	KeyShape      = capitan.NewStringKey("shape")
	KeyPriority   = capitan.NewIntKey("priority")
	KeyCount      = capitan.NewIntKey("count")
	KeyHandler    = capitan.NewStringKey("handler")
	KeyAnnotation = capitan.NewStringKey("annotation")
	KeyCapability = capitan.NewStringKey("capability")
	KeyName       = capitan.NewStringKey("name")
	KeyDuration   = capitan.NewDurationKey("duration")
	KeyError      = capitan.NewErrorKey("error")
)

func emitTransformStart(ctx context.Context, t *Type) {
	capitan.Emit(ctx, SignalTransformStart,
		KeyTypeName.Field(t.String()),
		KeyShape.Field(t.Shape().String()),
	)
}

func emitTransformComplete(ctx context.Context, t *Type, applied int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(t.String()),
		KeyShape.Field(t.Shape().String()),
		KeyCount.Field(applied),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalTransformComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalTransformComplete, fields...)
	}
}

func emitTransformerAdded(ctx context.Context, priority int) {
	capitan.Emit(ctx, SignalTransformerAdded, KeyPriority.Field(priority))
}

func emitTransformerDropped(ctx context.Context, priority int) {
	capitan.Emit(ctx, SignalTransformerDropped, KeyPriority.Field(priority))
}

func emitTransformerRemoved(ctx context.Context, priority int) {
	capitan.Emit(ctx, SignalTransformerRemoved, KeyPriority.Field(priority))
}

func emitHandlerResolved(ctx context.Context, handler reflect.Type, annotation reflect.Type) {
	capitan.Emit(ctx, SignalHandlerResolved,
		KeyHandler.Field(handler.String()),
		KeyAnnotation.Field(annotation.String()),
	)
}

func emitFieldPlanCached(ctx context.Context, t reflect.Type, fields int) {
	capitan.Emit(ctx, SignalFieldPlanCached,
		KeyTypeName.Field(t.String()),
		KeyCount.Field(fields),
	)
}

func emitCapabilityRegistered(ctx context.Context, capability, name string) {
	capitan.Emit(ctx, SignalCapabilityRegistered,
		KeyCapability.Field(capability),
		KeyName.Field(name),
	)
}
