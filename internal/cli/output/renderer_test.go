package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{ModeAuto, ModeText},
		{ModeText, ModeText},
		{ModeMarkdown, ModeMarkdown},
		{ModeJSON, ModeJSON},
		{"", ModeText},
	}
	for _, tt := range tests {
		r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, tt.mode)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %q", tt.mode)
	}
}

func TestBufferOutputIsUnstyled(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeText)

	r.Header(1, "Conversion Summary")
	r.Success("done")
	r.StatusLine("Tables", "4")

	assert.False(t, r.IsTTY())
	assert.Equal(t, "Conversion Summary\ndone\nTables: 4\n", out.String())
}

func TestMarkdownMode(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeMarkdown)

	r.Header(2, "Pages")
	r.StatusLine("Tables", "4")

	assert.Equal(t, "## Pages\n- **Tables**: 4\n", out.String())
}

func TestJSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeJSON)

	require.NoError(t, r.JSON(map[string]int{"tables": 4}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 4, decoded["tables"])
}

func TestWarningGoesToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)

	r.Warning("2 functions unconverted")

	assert.Empty(t, out.String())
	assert.Equal(t, "2 functions unconverted\n", errOut.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "### Tables", FormatHeader(3, "Tables"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "- **Rate**: 95%", FormatKeyValue("Rate", "95%"))
	assert.Equal(t, "```m\nlet\n```", FormatCodeBlock("m", "let\n"))
}
