package processor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingestkit/tipline/pkg/processor"
)

func TestSessionWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.tsv")

	s, err := processor.NewSession(path)
	require.NoError(t, err)
	require.NoError(t, s.Record("T-1", "LCD-1", 2, []string{"a.jpg", "b.jpg"}))
	require.NoError(t, s.Close())

	s2, err := processor.NewSession(path)
	require.NoError(t, err)
	require.NoError(t, s2.Record("T-2", "LCD-2", 0, nil))
	require.NoError(t, s2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Equal(t, 1, countOccurrences(content, "TIMESTAMP\tTIP\tINSPECTION_ID"))
	assert.Contains(t, content, "T-1\tLCD-1\t2\ta.jpg;b.jpg")
	assert.Contains(t, content, "T-2\tLCD-2\t0\tNONE")
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}
