package tools

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	bzip2Magic = []byte("BZh")
)

// tarReader sniffs the compression of data and returns a tar reader over it.
func tarReader(data []byte) (*tar.Reader, error) {
	var r io.Reader = bytes.NewReader(data)
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		r = gz
	case bytes.HasPrefix(data, xzMagic):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		r = xr
	case bytes.HasPrefix(data, bzip2Magic):
		r = bzip2.NewReader(r)
	}
	return tar.NewReader(r), nil
}

// extractMember returns the content of the first regular file whose name
// matches the glob pattern.
func extractMember(data []byte, pattern string) ([]byte, error) {
	tr, err := tarReader(data)
	if err != nil {
		return nil, wrapError(ReasonExtraction, err, "open tarball")
	}
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapError(ReasonExtraction, err, "read tar header")
		}
		if header.Typeflag != tar.TypeReg && header.Typeflag != tar.TypeRegA {
			continue
		}
		if ok, err := path.Match(pattern, header.Name); err != nil || !ok {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, wrapError(ReasonExtraction, err, "read %s", header.Name)
		}
		return content, nil
	}
	return nil, newError(ReasonExtraction, "no entry matching %q", pattern)
}

// untar unpacks data below dest and returns the first top-level directory it
// created. Entries escaping dest are rejected.
func untar(data []byte, dest string) (string, error) {
	tr, err := tarReader(data)
	if err != nil {
		return "", wrapError(ReasonExtraction, err, "open tarball")
	}
	var topDir string
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", wrapError(ReasonExtraction, err, "read tar header")
		}
		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return "", err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", wrapError(ReasonExtraction, err, "create dir %s", target)
			}
		case tar.TypeReg, tar.TypeRegA:
			if err := writeFileFrom(target, tr, os.FileMode(header.Mode)&0o777|0o600); err != nil {
				return "", err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return "", newError(ReasonExtraction, "absolute link %s in %s", header.Linkname, header.Name)
			}
			if _, err := safeJoin(dest, path.Join(path.Dir(header.Name), header.Linkname)); err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return "", wrapError(ReasonExtraction, err, "prepare %s", target)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return "", wrapError(ReasonExtraction, err, "symlink %s", target)
			}
		case tar.TypeXGlobalHeader:
			// pax comment from git archive
			continue
		default:
			return "", newError(ReasonExtraction, "unsupported tar element %s", header.Name)
		}
		if topDir == "" {
			if first := strings.SplitN(strings.TrimPrefix(path.Clean(header.Name), "./"), "/", 2)[0]; first != "" && first != "." {
				topDir = filepath.Join(dest, first)
			}
		}
	}
	if topDir == "" {
		return "", newError(ReasonExtraction, "tarball has no directory")
	}
	return topDir, nil
}

func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newError(ReasonExtraction, "entry %s escapes %s", name, root)
	}
	return target, nil
}

func writeFileFrom(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return wrapError(ReasonExtraction, err, "prepare file %s", target)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return wrapError(ReasonExtraction, err, "create file %s", target)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return wrapError(ReasonExtraction, err, "write file %s", target)
	}
	if err := out.Close(); err != nil {
		return wrapError(ReasonExtraction, err, "close file %s", target)
	}
	return nil
}
