package creator

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/content"
	"github.com/jbkfmt/jubako/pkg/directory"
	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
	"github.com/jbkfmt/jubako/pkg/manifest"
)

// ConcatMode controls how BasicCreator lays the finished packs out on
// disk: as one self-contained file, as a metadata file plus a separate
// content file, or as one file per pack.
type ConcatMode int

const (
	// ConcatOneFile wraps manifest, directory and content packs in a
	// single ContainerPack envelope.
	ConcatOneFile ConcatMode = iota
	// ConcatTwoFiles embeds directory+manifest in one ContainerPack (the
	// "metadata" file) and writes the content pack to its own sibling
	// file (the "data" file), referenced by path.
	ConcatTwoFiles
	// ConcatNoConcat writes every pack to its own standalone file,
	// referenced from the manifest purely by sibling path.
	ConcatNoConcat
)

// BasicCreator orchestrates a directory.Creator and a content.Writer into
// a complete, self-consistent Jubako container: it owns content-id and
// entry bookkeeping only to the extent of wiring the two together and
// producing the ManifestPack that ties every pack's identity to its
// final on-disk location.
type BasicCreator struct {
	OutputDir string
	BaseName  string
	Mode      ConcatMode
	Compression content.CompressionType

	ManifestUUID  uuid.UUID
	DirectoryUUID uuid.UUID
	ContentUUID   uuid.UUID

	Directory *directory.Creator
	content   *content.Writer
}

// NewBasicCreator returns a creator ready to accept directory and content
// data. Call Directory's Add* methods and AddContent to populate the
// container, then Finalize to write it to disk.
func NewBasicCreator(outputDir, baseName string, mode ConcatMode, compression content.CompressionType) *BasicCreator {
	manifestID, directoryID, contentID := uuid.New(), uuid.New(), uuid.New()
	return &BasicCreator{
		OutputDir:     outputDir,
		BaseName:      baseName,
		Mode:          mode,
		Compression:   compression,
		ManifestUUID:  manifestID,
		DirectoryUUID: directoryID,
		ContentUUID:   contentID,
		Directory:     directory.NewCreator(directoryID),
		content:       content.NewWriter(contentID, compression),
	}
}

// AddContent stores data in the creator's content pack and returns the
// ContentAddress a directory entry should reference it by.
func (c *BasicCreator) AddContent(data []byte) (jbkpack.ContentAddress, error) {
	id, err := c.content.AddContent(data)
	if err != nil {
		return jbkpack.ContentAddress{}, err
	}
	return jbkpack.ContentAddress{PackID: 1, ContentID: id}, nil
}

// ContentCount reports how many contents have been added so far.
func (c *BasicCreator) ContentCount() int {
	return c.content.Count()
}

func (c *BasicCreator) path(suffix string) string {
	return filepath.Join(c.OutputDir, c.BaseName+suffix)
}

// Finalize serializes the directory and content packs, assembles the
// manifest, and writes every file required by Mode atomically.
func (c *BasicCreator) Finalize() (finalPaths []string, err error) {
	dirBytes, err := c.Directory.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: directory pack: %w", err)
	}
	contentBytes, err := c.content.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: content pack: %w", err)
	}

	switch c.Mode {
	case ConcatOneFile:
		return c.finalizeOneFile(dirBytes, contentBytes)
	case ConcatTwoFiles:
		return c.finalizeTwoFiles(dirBytes, contentBytes)
	case ConcatNoConcat:
		return c.finalizeNoConcat(dirBytes, contentBytes)
	default:
		return nil, fmt.Errorf("creator: unknown concat mode %d", c.Mode)
	}
}

func (c *BasicCreator) finalizeOneFile(dirBytes, contentBytes []byte) ([]string, error) {
	cw := jbkcontainer.NewWriter(uuid.New())
	dirOffset := jbkpack.HeaderSize
	cw.Embed(c.DirectoryUUID, dirBytes)
	contentOffset := dirOffset + len(dirBytes)
	cw.Embed(c.ContentUUID, contentBytes)

	mw := manifest.NewWriter(c.ManifestUUID)
	mw.AddPack(packInfoAt(c.DirectoryUUID, 0, jbkpack.KindDirectory, dirBytes, bases.Offset(dirOffset)))
	mw.AddPack(packInfoAt(c.ContentUUID, 1, jbkpack.KindContent, contentBytes, bases.Offset(contentOffset)))
	manifestBytes, err := mw.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: manifest pack: %w", err)
	}
	cw.Embed(c.ManifestUUID, manifestBytes)

	containerBytes, err := cw.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: container pack: %w", err)
	}
	path := c.path(".jbk")
	if err := writeAtomic(path, containerBytes); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func (c *BasicCreator) finalizeTwoFiles(dirBytes, contentBytes []byte) ([]string, error) {
	contentPath := c.path(".jbkc")

	cw := jbkcontainer.NewWriter(uuid.New())
	dirOffset := jbkpack.HeaderSize
	cw.Embed(c.DirectoryUUID, dirBytes)

	mw := manifest.NewWriter(c.ManifestUUID)
	mw.AddPack(packInfoAt(c.DirectoryUUID, 0, jbkpack.KindDirectory, dirBytes, bases.Offset(dirOffset)))
	mw.AddPack(packInfoPath(c.ContentUUID, 1, jbkpack.KindContent, contentBytes, filepath.Base(contentPath)))
	manifestBytes, err := mw.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: manifest pack: %w", err)
	}
	cw.Embed(c.ManifestUUID, manifestBytes)

	metaBytes, err := cw.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: metadata container: %w", err)
	}
	metaPath := c.path(".jbk")
	if err := writeAtomic(metaPath, metaBytes); err != nil {
		return nil, err
	}
	if err := writeAtomic(contentPath, contentBytes); err != nil {
		return nil, err
	}
	return []string{metaPath, contentPath}, nil
}

func (c *BasicCreator) finalizeNoConcat(dirBytes, contentBytes []byte) ([]string, error) {
	dirPath := c.path(".jbkd")
	contentPath := c.path(".jbkc")
	manifestPath := c.path(".jbkm")

	mw := manifest.NewWriter(c.ManifestUUID)
	mw.AddPack(packInfoPath(c.DirectoryUUID, 0, jbkpack.KindDirectory, dirBytes, filepath.Base(dirPath)))
	mw.AddPack(packInfoPath(c.ContentUUID, 1, jbkpack.KindContent, contentBytes, filepath.Base(contentPath)))
	manifestBytes, err := mw.Finalize()
	if err != nil {
		return nil, fmt.Errorf("creator: manifest pack: %w", err)
	}

	for path, data := range map[string][]byte{dirPath: dirBytes, contentPath: contentBytes, manifestPath: manifestBytes} {
		if err := writeAtomic(path, data); err != nil {
			return nil, err
		}
	}
	return []string{manifestPath, dirPath, contentPath}, nil
}

func packInfoAt(id uuid.UUID, packID uint8, kind jbkpack.Kind, raw []byte, offset bases.Offset) *manifest.PackInfo {
	header, _ := jbkpack.DecodeHeader(raw)
	return &manifest.PackInfo{
		UUID:                 id,
		PackID:               packID,
		PackKind:             kind,
		DeclaredSize:         bases.Size(len(raw)),
		DeclaredCheckInfoPos: header.CheckInfoPos,
		Location:             manifest.PackLocation{Kind: manifest.LocationOffset, Offset: offset},
	}
}

func packInfoPath(id uuid.UUID, packID uint8, kind jbkpack.Kind, raw []byte, path string) *manifest.PackInfo {
	header, _ := jbkpack.DecodeHeader(raw)
	return &manifest.PackInfo{
		UUID:                 id,
		PackID:               packID,
		PackKind:             kind,
		DeclaredSize:         bases.Size(len(raw)),
		DeclaredCheckInfoPos: header.CheckInfoPos,
		Location:             manifest.PackLocation{Kind: manifest.LocationPath, Path: path},
	}
}

func writeAtomic(path string, data []byte) error {
	f, err := NewAtomicOutFile(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Cancel()
		return fmt.Errorf("creator: write %s: %w", path, err)
	}
	return f.Finalize()
}
