package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Catalog enumerates the recordings available to load.
type Catalog interface {
	List() ([]string, error)
}

// DirCatalog lists the regular files of a directory. A missing directory is an
// empty catalog.
type DirCatalog struct {
	Dir string
}

var _ Catalog = DirCatalog{}

func (c DirCatalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing recordings in %s: %w", c.Dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
