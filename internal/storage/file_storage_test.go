package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArchive(t *testing.T) (*localArchive, string) {
	t.Helper()
	tempDir := t.TempDir()
	archive, err := NewLocalArchive(tempDir)
	require.NoError(t, err)

	la := archive.(*localArchive)
	la.now = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return la, tempDir
}

func TestValidatePath_PathTraversalDots(t *testing.T) {
	la, _ := newTestArchive(t)

	tests := []struct {
		name string
		path string
	}{
		{"simple traversal", "../etc/passwd"},
		{"double traversal", "../../etc/passwd"},
		{"nested traversal", "subdir/../../../etc/passwd"},
		{"windows style", "..\\..\\windows\\system32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := la.validatePath(tt.path)
			assert.ErrorIs(t, err, ErrPathTraversal)
		})
	}
}

func TestValidatePath_ValidPath(t *testing.T) {
	la, tempDir := newTestArchive(t)

	tests := []struct {
		name string
		path string
	}{
		{"simple file", "file.eml"},
		{"campaign month", "spring/2025-03/abc.eml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := la.validatePath(tt.path)
			assert.NoError(t, err)
			absBase, _ := filepath.Abs(tempDir)
			assert.True(t, strings.HasPrefix(result, absBase))
		})
	}
}

func TestSave_Layout(t *testing.T) {
	la, tempDir := newTestArchive(t)

	path, err := la.Save("AI Email Replies", "5f0c-track", []byte("Subject: hi\r\n\r\nbody"))

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("AI Email Replies", "2025-03", "5f0c-track.eml"), path)
	data, err := os.ReadFile(filepath.Join(tempDir, path))
	require.NoError(t, err)
	assert.Equal(t, "Subject: hi\r\n\r\nbody", string(data))
}

func TestSave_SanitizesNames(t *testing.T) {
	la, _ := newTestArchive(t)

	path, err := la.Save("../../etc", "../passwd", []byte("x"))

	require.NoError(t, err)
	assert.False(t, strings.Contains(path, ".."+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(path, ".eml"))
}

func TestSave_DefaultsForEmptyNames(t *testing.T) {
	la, _ := newTestArchive(t)

	path, err := la.Save("", "", []byte("x"))

	require.NoError(t, err)
	parts := strings.Split(path, string(filepath.Separator))
	require.Len(t, parts, 3)
	assert.Equal(t, uncategorized, parts[0])
	assert.Len(t, strings.TrimSuffix(parts[2], ".eml"), 36)
}

func TestSave_TooLarge(t *testing.T) {
	la, _ := newTestArchive(t)

	_, err := la.Save("c", "t", make([]byte, MaxMessageSize+1))

	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSaveGetDelete(t *testing.T) {
	la, _ := newTestArchive(t)

	path, err := la.Save("spring", "t-1", []byte("raw message"))
	require.NoError(t, err)

	reader, err := la.Get(path)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, "raw message", string(data))

	require.NoError(t, la.Delete(path))
	_, err = la.Get(path)
	assert.ErrorIs(t, err, ErrFileNotFound)

	assert.NoError(t, la.Delete(path), "deleting a missing file is not an error")
}

func TestGet_PathTraversal(t *testing.T) {
	la, _ := newTestArchive(t)

	_, err := la.Get("../../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)

	err = la.Delete("../../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestNewLocalArchive_CreatesDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "new", "nested", "dir")

	_, err := NewLocalArchive(newDir)
	assert.NoError(t, err)

	info, err := os.Stat(newDir)
	assert.NoError(t, err)
	assert.True(t, info.IsDir())
}
