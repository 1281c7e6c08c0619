package storage

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageStore_Save(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/images")
	require.NoError(t, err)

	first, err := store.Save(strings.NewReader("one"), ".PNG")
	require.NoError(t, err)
	second, err := store.Save(strings.NewReader("two"), ".png")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "stored names must be unique")
	assert.True(t, strings.HasSuffix(first, ".png"), "extension is normalized to lower case")

	p, err := store.Path(first)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestImageStore_SaveImage(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/images")
	require.NoError(t, err)

	img := imaging.New(20, 10, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	name, err := store.SaveImage(img)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	p, err := store.Path(name)
	require.NoError(t, err)
	decoded, err := imaging.Open(p)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), decoded.Bounds())
}

func TestImageStore_PathTraversal(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/images")
	require.NoError(t, err)

	_, err = store.Path("../../etc/passwd")
	assert.Error(t, err)
}

func TestImageStore_URL(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/images")
	require.NoError(t, err)

	assert.Equal(t, "/images/abc.jpg", store.URL("abc.jpg"))
}

func TestImageStore_Remove(t *testing.T) {
	store, err := NewImageStore(t.TempDir(), "/images")
	require.NoError(t, err)

	name, err := store.Save(strings.NewReader("data"), ".zip")
	require.NoError(t, err)

	require.NoError(t, store.Remove(name))
	p, _ := store.Path(name)
	_, statErr := os.Stat(p)
	assert.True(t, os.IsNotExist(statErr))

	// Removing a missing file is not an error
	assert.NoError(t, store.Remove(name))
}

func TestNewImageStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")
	_, err := NewImageStore(dir, "/images")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
