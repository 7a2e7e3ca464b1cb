package prediction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadONNX_MissingModel(t *testing.T) {
	_, err := LoadONNX(ONNXOptions{ModelPath: filepath.Join(t.TempDir(), "ev_model.onnx")})
	assert.ErrorContains(t, err, "model file missing")
}

func TestResolveSharedLibraryPath(t *testing.T) {
	t.Run("configured path wins", func(t *testing.T) {
		t.Setenv("ONNXRUNTIME_SHARED_LIBRARY_PATH", "/env/libonnxruntime.so")
		assert.Equal(t, "/custom/lib.so", resolveSharedLibraryPath(" /custom/lib.so ", t.TempDir()))
	})

	t.Run("environment next", func(t *testing.T) {
		t.Setenv("ONNXRUNTIME_SHARED_LIBRARY_PATH", "/env/libonnxruntime.so")
		assert.Equal(t, "/env/libonnxruntime.so", resolveSharedLibraryPath("", t.TempDir()))
	})

	t.Run("library next to the model", func(t *testing.T) {
		t.Setenv("ONNXRUNTIME_SHARED_LIBRARY_PATH", "")
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
		lib := filepath.Join(dir, "lib", "libonnxruntime.so")
		require.NoError(t, os.WriteFile(lib, nil, 0o644))

		assert.Equal(t, lib, resolveSharedLibraryPath("", dir))
	})
}
