package jbkcontainer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/content"
	"github.com/jbkfmt/jubako/pkg/directory"
	"github.com/jbkfmt/jubako/pkg/jbkerr"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
	"github.com/jbkfmt/jubako/pkg/manifest"
)

// Container is the top-level read handle over a Jubako file: its manifest,
// and lazily-resolved directory and content packs. A pack that decodes
// successfully is cached, so later requests reuse it without repeating the
// check-info verification; concurrent first requests may each decode the
// pack before one result is cached.
type Container struct {
	Manifest *manifest.Pack
	locator  *Locator

	mu      sync.Mutex
	dirPack MayMissPack[*directory.Pack]
	dirSet  bool
	dirErr  error

	contentPacks map[uint8]MayMissPack[*content.Pack]
	contentErrs  map[uint8]error
}

// Open reads path, locates its ManifestPack (either the whole file, or the
// last entry of a ContainerPack envelope) and returns a Container ready to
// resolve the directory pack and content packs on demand.
func Open(path string) (*Container, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jbkcontainer: open %s: %w", path, err)
	}
	return OpenBytes(raw, filepath.Dir(path))
}

// OpenBytes builds a Container from an in-memory Jubako file image. baseDir
// is used to resolve sibling pack paths recorded in the manifest.
func OpenBytes(raw []byte, baseDir string) (*Container, error) {
	manifestBytes, err := locateManifestBytes(raw)
	if err != nil {
		return nil, err
	}
	mp, err := manifest.OpenPack(manifestBytes)
	if err != nil {
		return nil, err
	}

	home := bases.NewMemorySource(raw)
	return &Container{
		Manifest:     mp,
		locator:      NewLocator(home, baseDir),
		contentPacks: make(map[uint8]MayMissPack[*content.Pack]),
		contentErrs:  make(map[uint8]error),
	}, nil
}

// locateManifestBytes finds the manifest pack within a raw file image: a
// ContainerPack envelope's last entry (by convention) if the file starts
// with one, otherwise the whole file is treated as a bare ManifestPack.
func locateManifestBytes(raw []byte) ([]byte, error) {
	if len(raw) < jbkpack.HeaderSize {
		return nil, fmt.Errorf("jbkcontainer: file too small to hold a pack header: %w", jbkerr.ErrFormat)
	}
	var magic jbkpack.Kind
	copy(magic[:], raw[0:4])

	switch magic {
	case jbkpack.KindContainer:
		cp, err := OpenPack(raw)
		if err != nil {
			return nil, err
		}
		if len(cp.Entries) == 0 {
			return nil, fmt.Errorf("jbkcontainer: container pack has no entries: %w", jbkerr.ErrFormat)
		}
		return cp.Slice(len(cp.Entries) - 1)
	case jbkpack.KindManifest:
		return raw, nil
	default:
		return nil, fmt.Errorf("jbkcontainer: file starts with unrecognized magic %q: %w", magic, jbkerr.ErrFormat)
	}
}

// DirectoryPack resolves and decodes the container's single directory
// pack. A successful decode is cached for subsequent calls; a pack that is
// merely missing is re-resolved every call, since a sibling file absent
// today may be restored before the next call without the container being
// reopened.
func (c *Container) DirectoryPack() (MayMissPack[*directory.Pack], error) {
	c.mu.Lock()
	if c.dirSet {
		defer c.mu.Unlock()
		return c.dirPack, c.dirErr
	}
	c.mu.Unlock()

	pi, err := c.Manifest.DirectoryPackInfo()
	if err != nil {
		return MayMissPack[*directory.Pack]{}, err
	}
	resolved := c.locator.Resolve(pi)
	if !resolved.IsFound() {
		return Missing[*directory.Pack](pi), nil
	}
	raw, _ := resolved.Get()
	dp, err := directory.OpenPack(raw)
	if err != nil {
		return MayMissPack[*directory.Pack]{}, fmt.Errorf("jbkcontainer: directory pack: %w", err)
	}

	found := Found(dp)
	c.mu.Lock()
	c.dirPack, c.dirErr, c.dirSet = found, nil, true
	c.mu.Unlock()
	return found, nil
}

// ContentPack resolves and decodes the content pack with the given pack id
// (as recorded in the manifest, 1..N). A successful decode is cached for
// subsequent calls; a pack that is merely missing is re-resolved every
// call, so restoring a sibling file makes the pack available again without
// reopening the container.
func (c *Container) ContentPack(packID uint8) (MayMissPack[*content.Pack], error) {
	c.mu.Lock()
	if pack, ok := c.contentPacks[packID]; ok {
		c.mu.Unlock()
		return pack, nil
	}
	if err, ok := c.contentErrs[packID]; ok {
		c.mu.Unlock()
		return MayMissPack[*content.Pack]{}, err
	}
	c.mu.Unlock()

	var pi *manifest.PackInfo
	for _, candidate := range c.Manifest.ContentPackInfos() {
		if candidate.PackID == packID {
			pi = candidate
			break
		}
	}
	if pi == nil {
		err := fmt.Errorf("jbkcontainer: no content pack with id %d: %w", packID, jbkerr.ErrMissingPack)
		c.mu.Lock()
		c.contentErrs[packID] = err
		c.mu.Unlock()
		return MayMissPack[*content.Pack]{}, err
	}

	resolved := c.locator.Resolve(pi)
	if !resolved.IsFound() {
		return Missing[*content.Pack](pi), nil
	}
	raw, _ := resolved.Get()
	cp, err := content.OpenPack(raw)
	if err != nil {
		err = fmt.Errorf("jbkcontainer: content pack %d: %w", packID, err)
		c.mu.Lock()
		c.contentErrs[packID] = err
		c.mu.Unlock()
		return MayMissPack[*content.Pack]{}, err
	}

	found := Found(cp)
	c.mu.Lock()
	c.contentPacks[packID] = found
	c.mu.Unlock()
	return found, nil
}

// ResolveRaw resolves a PackInfo to the raw, still-encoded bytes of the
// pack it names, without decoding it. This is what a repacking tool needs:
// it wants to move a pack's bytes to a new location, not interpret them.
func (c *Container) ResolveRaw(pi *manifest.PackInfo) MayMissPack[[]byte] {
	return c.locator.Resolve(pi)
}

// GetBlob resolves a ContentAddress all the way down to its decompressed
// bytes, returning MayMissPack.Missing if the content pack it points into
// is absent.
func (c *Container) GetBlob(addr jbkpack.ContentAddress) (MayMissPack[[]byte], error) {
	mm, err := c.ContentPack(addr.PackID)
	if err != nil {
		return MayMissPack[[]byte]{}, err
	}
	pack, ok := mm.Get()
	if !ok {
		return Missing[[]byte](mm.PackInfo()), nil
	}
	blob, err := pack.Get(addr.ContentID)
	if err != nil {
		return MayMissPack[[]byte]{}, err
	}
	return Found(blob), nil
}
