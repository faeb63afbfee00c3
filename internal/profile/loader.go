package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// Loader resolves device codes to profile files under a fixed directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader reading profiles from dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads and validates the profile for a device code. The file name is
// the decimal device code with a .json extension (e.g. 1080.json).
//
// Returns ErrProfileNotFound when no file exists for the code, or an error
// wrapping ErrInvalidProfile when the file cannot be parsed or validated.
func (l *Loader) Load(deviceCode int) (*Profile, error) {
	return LoadFile(filepath.Join(l.dir, strconv.Itoa(deviceCode)+".json"))
}

// LoadFile reads and validates a profile from an explicit path.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, path)
		}
		return nil, fmt.Errorf("reading device profile %s: %w", path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidProfile, filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
