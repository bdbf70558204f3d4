package filewalker

import (
	"os"
	"path/filepath"
	"testing"

	"mod-localizer/internal/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("<Defs/>"), 0644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Zeta", "Defs", "a.xml"))
	touch(t, filepath.Join(root, "Alpha", "About", "About.xml"))
	touch(t, filepath.Join(root, "Versioned", "1.5", "Defs", "a.xml"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "NotAMod", "Textures"), 0755))
	touch(t, filepath.Join(root, "stray.xml"))

	mods, err := Discover(root)
	require.NoError(t, err)

	var names []string
	for _, m := range mods {
		names = append(names, m.Name)
		assert.True(t, filepath.IsAbs(m.Path))
	}
	assert.Equal(t, []string{"Alpha", "Versioned", "Zeta"}, names)
}

func TestDiscover_RootIsMod(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Defs", "a.xml"))

	mods, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, filepath.Base(root), mods[0].Name)
}

func TestOpenMod_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenMod(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file.xml")
	touch(t, file)
	_, err = OpenMod(file)
	assert.Error(t, err)
}

func TestMod_Dirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "1.4", "Defs", "a.xml"))
	touch(t, filepath.Join(root, "1.10", "Defs", "a.xml"))
	touch(t, filepath.Join(root, "1.10", "Languages", "English", "Keyed", "k.xml"))

	m, err := OpenMod(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(m.Path, "1.10", "Defs"), m.DefsDir())
	assert.Equal(t, filepath.Join(m.Path, "1.10", "Languages", "English", "Keyed"), m.KindDir("English", unit.Keyed))

	touch(t, filepath.Join(root, "Defs", "top.xml"))
	assert.Equal(t, filepath.Join(m.Path, "Defs"), m.DefsDir())
	assert.Equal(t, filepath.Join(m.Path, "1.10", "Languages", "German", "DefInjected"), m.KindDir("German", unit.DefInjected))
}

func TestXMLFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b", "two.xml"))
	touch(t, filepath.Join(dir, "a.XML"))
	touch(t, filepath.Join(dir, "notes.txt"))

	files, err := XMLFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.XML"), filepath.Join(dir, "b", "two.xml")}, files)

	files, err = XMLFiles(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Nil(t, files)
}
