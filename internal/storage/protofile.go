package storage

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ProtoFile is a file that can still be discarded or named after having been
// written. Unlike with traditional files such a commitment is made ex ante,
// on creation; these have a lifecycle of {IntentNew, Write, Persist or Zap}.
//
// The file is written as a hidden sibling and only emerges under its final
// name through a link(2), which doubles as the exclusive-create primitive:
// a concurrent writer racing for the same name loses with os.ErrExist.
type ProtoFile struct {
	*os.File

	finalName string
	persisted bool
}

// IntentNew creates a nameless-for-now file destined for dir/filename.
func IntentNew(dir, filename string) (*ProtoFile, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	t, err := os.CreateTemp(dir, "."+filename+".*")
	if err != nil {
		return nil, err
	}
	return &ProtoFile{
		File:      t,
		finalName: filepath.Join(dir, filename),
	}, nil
}

// Zap discards a file that has not been persisted, else is a NOP.
func (p *ProtoFile) Zap() error {
	if p.persisted {
		return nil
	}
	name := p.File.Name()
	p.File.Close()
	return os.Remove(name)
}

// Persist emerges the file under its final name into observable namespace.
// This closes the file. os.ErrExist is returned if the name has been taken
// in the meantime.
func (p *ProtoFile) Persist() error {
	if err := p.File.Sync(); err != nil {
		p.File.Close()
		return err
	}
	tempName := p.File.Name()
	if err := p.File.Close(); err != nil {
		return err
	}
	if err := os.Link(tempName, p.finalName); err != nil {
		return err
	}
	os.Remove(tempName)
	p.persisted = true
	return syncDir(filepath.Dir(p.finalName))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "sync directory")
	}
	defer d.Close()
	return d.Sync()
}
