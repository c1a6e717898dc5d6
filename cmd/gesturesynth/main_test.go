package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gesturesynth/internal/route"
)

func TestPrintRoutes(t *testing.T) {
	table, err := route.NewTable([]route.Rule{
		{Source: route.HandsPresent, Target: "ipState", Min: 0, Max: 1},
		{Source: route.RightOpenness, Target: "ipSpeed", Min: -0.5, Max: 0.5},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printRoutes(&buf, table))
	assert.Equal(t, `routes:
  - source: handsPresent
    target: ipState
    min: 0
    max: 1
  - source: rightHand.openness
    target: ipSpeed
    min: -0.5
    max: 0.5
`, buf.String())
}
