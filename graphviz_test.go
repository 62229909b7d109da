package fsm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_ToDOT(t *testing.T) {
	m, _, err := newLampMachine()
	require.NoError(t, err)

	ctx := context.Background()

	_, err = m.Dispatch(ctx, toggle)
	require.NoError(t, err)
	require.NoError(t, m.ForceState(ctx, dimmed))

	dot := string(m.ToDOT())

	assert.Contains(t, dot, "digraph FSM {")
	assert.Contains(t, dot, `__start -> "off"`)
	assert.Contains(t, dot, `"dimmed" [label="dimmed\ntoggle, level", fillcolor="#90ee90", shape=doublecircle, tooltip="OnEntry\nOnExit"];`)
	assert.Contains(t, dot, `"off" -> "on" [label=" toggle "];`)
	assert.Contains(t, dot, `"on" -> "dimmed" [label=" (forced) ", style=dashed, color=red];`)
	assert.NotContains(t, dot, `"on" -> "off"`)
}
