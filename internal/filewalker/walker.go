package filewalker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"mod-localizer/internal/unit"

	"github.com/rs/zerolog/log"
)

// Mod is a mod directory discovered on disk.
type Mod struct {
	// Name is the directory name, used to partition batch work and store rows.
	Name string
	// Path is the absolute mod directory.
	Path string
}

// markers are the entries whose presence makes a directory a mod.
var markers = []string{"Defs", "Languages", "About"}

// OpenMod resolves path into a Mod without requiring any marker entries.
func OpenMod(path string) (Mod, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Mod{}, fmt.Errorf("resolve mod path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Mod{}, fmt.Errorf("stat mod: %w", err)
	}
	if !info.IsDir() {
		return Mod{}, fmt.Errorf("mod is not a directory: %s", abs)
	}
	return Mod{Name: filepath.Base(abs), Path: abs}, nil
}

// Discover returns root itself when it is a mod, otherwise every direct
// subdirectory that looks like one, sorted by name.
func Discover(root string) ([]Mod, error) {
	rootMod, err := OpenMod(root)
	if err != nil {
		return nil, err
	}
	if isMod(rootMod.Path) {
		return []Mod{rootMod}, nil
	}

	entries, err := os.ReadDir(rootMod.Path)
	if err != nil {
		return nil, fmt.Errorf("read mods root: %w", err)
	}

	var mods []Mod
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p := filepath.Join(rootMod.Path, e.Name())
		if isMod(p) {
			mods = append(mods, Mod{Name: e.Name(), Path: p})
		}
	}

	log.Info().Int("count", len(mods)).Str("root", rootMod.Path).Msg("Discovered mods")
	return mods, nil
}

func isMod(dir string) bool {
	for _, m := range markers {
		if exists(filepath.Join(dir, m)) {
			return true
		}
	}
	return latestVersionDir(dir) != ""
}

// DefsDir returns the Defs directory, preferring the newest version folder
// (e.g. 1.5/Defs) when the mod has no top-level Defs.
func (m Mod) DefsDir() string {
	return m.resolve("Defs")
}

// LanguageDir returns Languages/<lang>.
func (m Mod) LanguageDir(lang string) string {
	return filepath.Join(m.resolve("Languages"), lang)
}

// KindDir returns Languages/<lang>/DefInjected or Languages/<lang>/Keyed.
func (m Mod) KindDir(lang string, kind unit.Kind) string {
	return filepath.Join(m.LanguageDir(lang), kind.SubDir())
}

func (m Mod) resolve(sub string) string {
	direct := filepath.Join(m.Path, sub)
	if exists(direct) {
		return direct
	}
	if v := latestVersionDir(m.Path); v != "" {
		if p := filepath.Join(v, sub); exists(p) {
			return p
		}
	}
	return direct
}

// latestVersionDir finds the highest "major.minor" directory under dir.
func latestVersionDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	best, bestMajor, bestMinor := "", -1, -1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		majorStr, minorStr, ok := strings.Cut(e.Name(), ".")
		if !ok {
			continue
		}
		major, err1 := strconv.Atoi(majorStr)
		minor, err2 := strconv.Atoi(minorStr)
		if err1 != nil || err2 != nil {
			continue
		}
		if major > bestMajor || (major == bestMajor && minor > bestMinor) {
			best, bestMajor, bestMinor = filepath.Join(dir, e.Name()), major, minor
		}
	}
	return best
}

// XMLFiles lists *.xml files under dir recursively, sorted for stable output.
// A missing directory yields no files and no error.
func XMLFiles(dir string) ([]string, error) {
	if !exists(dir) {
		log.Debug().Str("dir", dir).Msg("Directory not present")
		return nil, nil
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	slices.Sort(files)
	return files, nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
