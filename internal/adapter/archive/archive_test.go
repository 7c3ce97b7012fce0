package archive

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/data"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, fsys afero.Fs, path string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte("\x89HDF\r\n\x1a\n"), 0o644))
}

func TestLastScanTime_NewestAcrossDirectories(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, root+"/noaa-goes16/ABI-L2-FDCF/2025/032/00/OR_ABI-L2-FDCF-M6_G16_s20250320000205_e20250320009513_c20250320010075.nc")
	writeFile(t, fsys, root+"/noaa-goes16/ABI-L2-FDCF/2025/033/13/OR_ABI-L2-FDCF-M6_G16_s20250331350205_e20250331359513_c20250331400075.nc")
	writeFile(t, fsys, root+"/noaa-goes16/ABI-L2-FDCF/2025/033/12/OR_ABI-L2-FDCF-M6_G16_s20250331200205_e20250331209513_c20250331210075.nc")
	writeFile(t, fsys, root+"/noaa-goes16/ABI-L2-FDCF/2025/040/00/OR_ABI-L2-FDCF-M6_G16_s20250400000205_e20250400009513_c20250400010075.nc.part")
	writeFile(t, fsys, root+"/notes/readme.nc")

	a := NewWithFs(fsys, root, discardLogger())
	last, ok, err := a.LastScanTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, time.February, 2, 13, 50, 20, 0, time.UTC), last)
}

func TestLastScanTime_EmptyArchive(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(root, 0o755))

	a := NewWithFs(fsys, root, discardLogger())
	_, ok, err := a.LastScanTime()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastScanTime_MissingRoot(t *testing.T) {
	a := NewWithFs(afero.NewMemMapFs(), root, discardLogger())
	_, ok, err := a.LastScanTime()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	fsys := afero.NewMemMapFs()
	path := root + "/noaa-goes16/corrupt.nc"
	writeFile(t, fsys, path)

	a := NewWithFs(fsys, root, discardLogger())
	require.NoError(t, a.Remove(path))

	exists, err := afero.Exists(fsys, path)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, a.Remove(path), "removing twice is not an error")
}
