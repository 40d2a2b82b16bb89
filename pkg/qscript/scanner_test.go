package qscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "two simple statements",
			script: "SET x = 1;\nLET y = 2;",
			want:   []string{"SET x = 1", "LET y = 2"},
		},
		{
			name:   "semicolon inside quotes does not split",
			script: "SET sep = ';';\nSET other = 1;",
			want:   []string{"SET sep = ';'", "SET other = 1"},
		},
		{
			name:   "semicolon inside inline block does not split",
			script: "T:\nLOAD * INLINE [\nA, B\n1, x;y\n];",
			want:   []string{"T:\nLOAD * INLINE [\nA, B\n1, x;y\n]"},
		},
		{
			name:   "statement without trailing semicolon is kept",
			script: "SET a = 1;\nTRACE done",
			want:   []string{"SET a = 1", "TRACE done"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := Split(tt.script)
			require.Len(t, stmts, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want, stmts[i].Text)
			}
		})
	}
}

func TestSplitLineNumbers(t *testing.T) {
	script := "SET a = 1;\n\n// note\nSales:\nLOAD X FROM [x.csv];"
	stmts := Split(script)
	require.Len(t, stmts, 3)

	assert.Equal(t, 1, stmts[0].Line)
	assert.Equal(t, "// note", stmts[1].Text)
	assert.True(t, stmts[1].IsComment)
	assert.Equal(t, 3, stmts[1].Line)
	assert.Equal(t, "Sales:\nLOAD X FROM [x.csv]", stmts[2].Text)
	assert.Equal(t, 4, stmts[2].Line)
}

func TestSplitCommentOnly(t *testing.T) {
	script := "// header comment;\nSET a = 1;\n/* block\ncomment */ SET b = 2;"
	stmts := Split(script)
	require.Len(t, stmts, 3)

	assert.True(t, stmts[0].IsComment)
	assert.False(t, stmts[1].IsComment)
	// The block comment is attached to the statement that follows it.
	assert.False(t, stmts[2].IsComment)
	assert.Contains(t, stmts[2].Text, "SET b = 2")
}

func TestSplitRemComment(t *testing.T) {
	script := "REM this is a remark;\nSET a = 1;"
	stmts := Split(script)
	require.Len(t, stmts, 2)
	assert.True(t, stmts[0].IsComment)
	assert.Equal(t, "SET a = 1", stmts[1].Text)
}
