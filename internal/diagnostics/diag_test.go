package diagnostics

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackCarriesCause(t *testing.T) {
	d := Fallback("spi", "pio", errors.New("no such file"))
	assert.Equal(t, Warn, d.Severity)
	assert.Equal(t, CodeFallback, d.Code)
	assert.Equal(t, "no such file", d.Detail)
	assert.Equal(t, "spi", d.Evidence["requested"])
	assert.Equal(t, "pio", d.Evidence["using"])
	assert.False(t, d.At.IsZero())
}

func TestSelfTestSeverity(t *testing.T) {
	assert.Equal(t, Info, SelfTest("row_sweep", 9, nil).Severity)

	d := SelfTest("row_sweep", 2, errors.New("line closed"))
	assert.Equal(t, Err, d.Severity)
	assert.Equal(t, "line closed", d.Detail)
	assert.NotEmpty(t, d.SuggestedFixes)
}

func TestDiagnosticJSON(t *testing.T) {
	b, err := json.Marshal(Reseed(12, 99, 0))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "info", m["severity"])
	assert.Equal(t, CodeReseed, m["code"])
	assert.NotContains(t, m, "detail")
	ev := m["evidence"].(map[string]any)
	assert.EqualValues(t, 12, ev["generation"])
	assert.EqualValues(t, 0, ev["alive"])
}
