package dispatch

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/ayusman/gesturesynth/internal/dispatch"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)
