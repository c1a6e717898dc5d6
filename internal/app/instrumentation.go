package app

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/ayusman/gesturesynth/internal/app"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
)
