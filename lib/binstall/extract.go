// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package binstall

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format identifies an archive encoding by file name suffix.
type Format int

const (
	FormatBinary Format = iota
	FormatTarGzip
	FormatTarZstd
	FormatTarLZ4
	FormatTar
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatTarGzip:
		return "tar.gz"
	case FormatTarZstd:
		return "tar.zst"
	case FormatTarLZ4:
		return "tar.lz4"
	case FormatTar:
		return "tar"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// DetectFormat picks the format from an archive file name. Names with
// no recognised suffix are treated as bare executables.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGzip
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZstd
	case strings.HasSuffix(lower, ".tar.lz4"):
		return FormatTarLZ4
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar
	default:
		return FormatBinary
	}
}

var errNotInArchive = errors.New("executable not found in archive")

// extract copies the executable named tool out of archive into
// destination.
func extract(format Format, archive io.Reader, tool string, destination io.Writer) error {
	if format == FormatBinary {
		if _, err := io.Copy(destination, archive); err != nil {
			return fmt.Errorf("copying binary: %w", err)
		}
		return nil
	}

	var stream io.Reader
	switch format {
	case FormatTarGzip:
		reader, err := gzip.NewReader(archive)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer reader.Close()
		stream = reader
	case FormatTarZstd:
		reader, err := zstd.NewReader(archive)
		if err != nil {
			return fmt.Errorf("opening zstd stream: %w", err)
		}
		defer reader.Close()
		stream = reader
	case FormatTarLZ4:
		stream = lz4.NewReader(archive)
	case FormatTar:
		stream = archive
	default:
		return fmt.Errorf("unsupported archive format %s", format)
	}

	tarReader := tar.NewReader(stream)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: no regular file named %q", errNotInArchive, tool)
		}
		if err != nil {
			return fmt.Errorf("reading %s archive: %w", format, err)
		}
		if header.Typeflag != tar.TypeReg || path.Base(header.Name) != tool {
			continue
		}
		if _, err := io.Copy(destination, tarReader); err != nil {
			return fmt.Errorf("extracting %s: %w", header.Name, err)
		}
		return nil
	}
}
