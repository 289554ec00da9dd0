package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportfetch/internal/observability/mocks"
	"reportfetch/internal/storage/types"
)

func TestArchive_PutAndExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")
	a, err := New(root, mocks.NewMockLogger())
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := a.Exists(ctx, "reports/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, a.Put(ctx, "reports/a.pdf", strings.NewReader("%PDF"), types.ObjectMetadata{}))

	exists, err = a.Exists(ctx, "reports/a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := os.ReadFile(filepath.Join(root, "reports", "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, root, a.Location())
}

func TestArchive_PutOverwrites(t *testing.T) {
	a, err := New(t.TempDir(), mocks.NewMockLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "a.pdf", strings.NewReader("old"), types.ObjectMetadata{}))
	require.NoError(t, a.Put(ctx, "a.pdf", strings.NewReader("new"), types.ObjectMetadata{}))

	data, err := os.ReadFile(filepath.Join(a.Location(), "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(a.Location())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestArchive_RejectsEscapingKeys(t *testing.T) {
	a, err := New(t.TempDir(), mocks.NewMockLogger())
	require.NoError(t, err)

	for _, key := range []string{"../outside.pdf", "a/../../outside.pdf", "", "/"} {
		t.Run(key, func(t *testing.T) {
			err := a.Put(context.Background(), key, strings.NewReader("x"), types.ObjectMetadata{})
			assert.Error(t, err)
		})
	}
}

func TestArchive_LeadingSlashStaysInsideRoot(t *testing.T) {
	a, err := New(t.TempDir(), mocks.NewMockLogger())
	require.NoError(t, err)

	require.NoError(t, a.Put(context.Background(), "/abs/a.pdf", strings.NewReader("x"), types.ObjectMetadata{}))

	_, err = os.Stat(filepath.Join(a.Location(), "abs", "a.pdf"))
	assert.NoError(t, err)
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New("", mocks.NewMockLogger())
	assert.Error(t, err)
}
