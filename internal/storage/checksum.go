package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Sha256Sum streams r through SHA-256 and returns the lowercase hex digest.
func Sha256Sum(r io.Reader) (string, error) {
	digest := sha256.New()
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(digest, r, buf); err != nil {
		return "", errors.Wrap(err, "checksum")
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// File is a stored file together with its checksum.
type File struct {
	Path   string
	Sha256 string
}

// Directory indexes the files beneath an upload root by checksum.
type Directory struct {
	Files []File
}

// ScanDirectory walks root recursively and computes the checksum of every
// regular file. Unreadable entries are omitted.
func ScanDirectory(root string) Directory {
	var dir Directory
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		sum, err := Sha256Sum(f)
		f.Close()
		if err != nil {
			return nil
		}
		dir.Files = append(dir.Files, File{Path: path, Sha256: sum})
		return nil
	})
	return dir
}

// FileByChecksum returns the first stored file matching sum.
// Files carrying a timestamp extension are tombstones or expiring uploads
// and never count as duplicates.
func (d Directory) FileByChecksum(sum string) (string, bool) {
	for _, file := range d.Files {
		if file.Sha256 == sum && !TimestampExtension.MatchString(file.Path) {
			return file.Path, true
		}
	}
	return "", false
}
