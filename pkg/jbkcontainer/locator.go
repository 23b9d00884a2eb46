package jbkcontainer

import (
	"os"
	"path/filepath"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/manifest"
)

// Locator resolves a PackInfo's declared location to the raw bytes of the
// pack it names. An Offset location is read from the manifest's own home
// file (the case for packs embedded alongside the manifest, whether or not
// a ContainerPack envelope wraps the whole thing); a Path location is read
// from a sibling file at that path relative to BaseDir. Only the declared
// location is tried: there is no fallback from one kind to the other, and
// packs are not looked up by uuid. A failed read is not an error: it is
// reported as MayMissPack.Missing so the caller can decide whether it
// actually needs that pack right now.
type Locator struct {
	Home    bases.Source // the file containing the manifest pack
	BaseDir string       // directory to resolve sibling Path locations against
}

// NewLocator builds a Locator over the manifest's home source and the
// directory sibling packs are resolved relative to.
func NewLocator(home bases.Source, baseDir string) *Locator {
	return &Locator{Home: home, BaseDir: baseDir}
}

// Resolve attempts to read the full bytes of the pack pi describes.
func (l *Locator) Resolve(pi *manifest.PackInfo) MayMissPack[[]byte] {
	switch pi.Location.Kind {
	case manifest.LocationOffset:
		return l.resolveOffset(pi)
	case manifest.LocationPath:
		return l.resolvePath(pi)
	default:
		return Missing[[]byte](pi)
	}
}

func (l *Locator) resolveOffset(pi *manifest.PackInfo) MayMissPack[[]byte] {
	if l.Home == nil {
		return Missing[[]byte](pi)
	}
	size := pi.DeclaredSize
	if size == 0 {
		return Missing[[]byte](pi)
	}
	buf := make([]byte, size)
	if _, err := l.Home.ReadAt(buf, pi.Location.Offset); err != nil {
		return Missing[[]byte](pi)
	}
	return Found(buf)
}

func (l *Locator) resolvePath(pi *manifest.PackInfo) MayMissPack[[]byte] {
	path := pi.Location.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.BaseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return Missing[[]byte](pi)
	}
	defer f.Close()

	src, err := bases.NewFileSource(f)
	if err != nil {
		return Missing[[]byte](pi)
	}
	buf := make([]byte, src.Size())
	if _, err := src.ReadAt(buf, 0); err != nil {
		return Missing[[]byte](pi)
	}
	return Found(buf)
}
