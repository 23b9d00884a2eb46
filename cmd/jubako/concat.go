package main

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbkfmt/jubako/pkg/bases"
	"github.com/jbkfmt/jubako/pkg/creator"
	"github.com/jbkfmt/jubako/pkg/jbkcontainer"
	"github.com/jbkfmt/jubako/pkg/jbkpack"
	"github.com/jbkfmt/jubako/pkg/manifest"
)

var concatModeFlag string

var concatCmd = &cobra.Command{
	Use:   "concat <path> <output-basename>",
	Short: "Repack a container into a different ConcatMode layout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseConcatMode(concatModeFlag)
		if err != nil {
			return err
		}
		return runConcat(args[0], args[1], mode)
	},
}

func init() {
	rootCmd.AddCommand(concatCmd)
	concatCmd.Flags().StringVar(&concatModeFlag, "mode", "one_file", "target layout: one_file, two_files, or no_concat")
}

func parseConcatMode(s string) (creator.ConcatMode, error) {
	switch s {
	case "one_file":
		return creator.ConcatOneFile, nil
	case "two_files":
		return creator.ConcatTwoFiles, nil
	case "no_concat":
		return creator.ConcatNoConcat, nil
	default:
		return 0, fmt.Errorf("concat: unknown mode %q (want one_file, two_files, or no_concat)", s)
	}
}

// runConcat reads every pack an existing container declares, without
// recompressing or re-encoding any of it, and re-emits the same bytes under
// the on-disk layout mode names.
func runConcat(path, outputBaseName string, mode creator.ConcatMode) error {
	c, err := jbkcontainer.Open(path)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}

	dirInfo, err := c.Manifest.DirectoryPackInfo()
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	dirMM := c.ResolveRaw(dirInfo)
	dirBytes, ok := dirMM.Get()
	if !ok {
		return fmt.Errorf("concat: directory pack %s is missing", dirInfo.UUID)
	}

	var contentInfos []*manifest.PackInfo
	var contentBytesList [][]byte
	for _, pi := range c.Manifest.ContentPackInfos() {
		mm := c.ResolveRaw(pi)
		raw, ok := mm.Get()
		if !ok {
			return fmt.Errorf("concat: content pack %d (%s) is missing", pi.PackID, pi.UUID)
		}
		contentInfos = append(contentInfos, pi)
		contentBytesList = append(contentBytesList, raw)
	}

	outDir := filepath.Dir(outputBaseName)
	baseName := filepath.Base(outputBaseName)

	paths, err := repack(outDir, baseName, mode, dirInfo.UUID, dirBytes, contentInfos, contentBytesList)
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

// repack assembles dirBytes and every content pack's bytes into mode's
// on-disk layout, producing a brand new manifest and container envelope(s).
// Unlike BasicCreator, it preserves every content pack's own pack id and
// uuid instead of assuming exactly one.
func repack(outDir, baseName string, mode creator.ConcatMode, dirUUID uuid.UUID, dirBytes []byte, contentInfos []*manifest.PackInfo, contentBytesList [][]byte) ([]string, error) {
	manifestUUID := uuid.New()

	switch mode {
	case creator.ConcatOneFile:
		cw := jbkcontainer.NewWriter(uuid.New())
		mw := manifest.NewWriter(manifestUUID)

		cw.Embed(dirUUID, dirBytes)
		mw.AddPack(packInfoAt(dirUUID, 0, jbkpack.KindDirectory, dirBytes, bases.Offset(jbkpack.HeaderSize)))

		for i, raw := range contentBytesList {
			pi := contentInfos[i]
			offset := bases.Offset(jbkpack.HeaderSize + len(dirBytes))
			for _, prev := range contentBytesList[:i] {
				offset += bases.Offset(len(prev))
			}
			cw.Embed(pi.UUID, raw)
			mw.AddPack(packInfoAt(pi.UUID, pi.PackID, pi.PackKind, raw, offset))
		}

		manifestBytes, err := mw.Finalize()
		if err != nil {
			return nil, err
		}
		cw.Embed(manifestUUID, manifestBytes)

		out, err := cw.Finalize()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outDir, baseName+".jbk")
		if err := writeFile(path, out); err != nil {
			return nil, err
		}
		return []string{path}, nil

	case creator.ConcatTwoFiles:
		cw := jbkcontainer.NewWriter(uuid.New())
		mw := manifest.NewWriter(manifestUUID)

		cw.Embed(dirUUID, dirBytes)
		mw.AddPack(packInfoAt(dirUUID, 0, jbkpack.KindDirectory, dirBytes, bases.Offset(jbkpack.HeaderSize)))

		contentPath := filepath.Join(outDir, baseName+".jbkc")
		var dataBody []byte
		for i, raw := range contentBytesList {
			pi := contentInfos[i]
			mw.AddPack(packInfoPath(pi.UUID, pi.PackID, pi.PackKind, raw, filepath.Base(contentPath)))
			dataBody = append(dataBody, raw...)
		}

		manifestBytes, err := mw.Finalize()
		if err != nil {
			return nil, err
		}
		cw.Embed(manifestUUID, manifestBytes)

		metaBytes, err := cw.Finalize()
		if err != nil {
			return nil, err
		}
		metaPath := filepath.Join(outDir, baseName+".jbk")
		if err := writeFile(metaPath, metaBytes); err != nil {
			return nil, err
		}
		if err := writeFile(contentPath, dataBody); err != nil {
			return nil, err
		}
		return []string{metaPath, contentPath}, nil

	case creator.ConcatNoConcat:
		dirPath := filepath.Join(outDir, baseName+".jbkd")
		manifestPath := filepath.Join(outDir, baseName+".jbkm")

		mw := manifest.NewWriter(manifestUUID)
		mw.AddPack(packInfoPath(dirUUID, 0, jbkpack.KindDirectory, dirBytes, filepath.Base(dirPath)))

		paths := []string{manifestPath, dirPath}
		files := map[string][]byte{dirPath: dirBytes}
		for i, raw := range contentBytesList {
			pi := contentInfos[i]
			p := filepath.Join(outDir, fmt.Sprintf("%s.%d.jbkc", baseName, pi.PackID))
			mw.AddPack(packInfoPath(pi.UUID, pi.PackID, pi.PackKind, raw, filepath.Base(p)))
			files[p] = raw
			paths = append(paths, p)
		}

		manifestBytes, err := mw.Finalize()
		if err != nil {
			return nil, err
		}
		files[manifestPath] = manifestBytes

		for p, data := range files {
			if err := writeFile(p, data); err != nil {
				return nil, err
			}
		}
		return paths, nil

	default:
		return nil, fmt.Errorf("unknown concat mode %d", mode)
	}
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

func writeFile(path string, data []byte) error {
	f, err := creator.NewAtomicOutFile(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Cancel()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Finalize()
}
