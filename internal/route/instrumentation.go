package route

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/ayusman/gesturesynth/internal/route"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)
