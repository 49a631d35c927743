package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no profile can be resolved.
var ErrNotFound = errors.New("profile not found")

var profileValidate = validator.New()

// storeFile is the on-disk shape: either a bare list or {profiles: [...]}.
type storeFile struct {
	Profiles []Profile `yaml:"profiles" json:"profiles"`
}

// Load reads a profile collection from a YAML or JSON file and validates it.
func Load(path string) ([]Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	profiles, err := Parse(b, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}

// Parse decodes a profile collection. ext selects the decoder (".yaml",
// ".yml", ".json"); anything else tries YAML then JSON.
func Parse(b []byte, ext string) ([]Profile, error) {
	var profiles []Profile
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		profiles, err = decodeYAML(b)
	case ".json":
		profiles, err = decodeJSON(b)
	default:
		profiles, err = decodeYAML(b)
		if err != nil {
			var jerr error
			if profiles, jerr = decodeJSON(b); jerr != nil {
				return nil, fmt.Errorf("parse profiles: %v (yaml) / %v (json)", err, jerr)
			}
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func decodeYAML(b []byte) ([]Profile, error) {
	var list []Profile
	if err := yaml.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var sf storeFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return sf.Profiles, nil
}

func decodeJSON(b []byte) ([]Profile, error) {
	var list []Profile
	if err := json.Unmarshal(b, &list); err == nil {
		return list, nil
	}
	var sf storeFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return sf.Profiles, nil
}

// Validate checks the struct constraints of every profile and that ids are
// unique. Detect patterns are not compiled here; the scanner reports those
// as configuration errors for the affected scan only.
func Validate(profiles []Profile) error {
	if len(profiles) == 0 {
		return errors.New("profiles: empty collection")
	}
	seen := make(map[string]struct{}, len(profiles))
	for i, p := range profiles {
		if err := profileValidate.Struct(p); err != nil {
			return fmt.Errorf("profiles[%d] (%s): %w", i, p.ID, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("profiles[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Store holds the current profile collection and is safe for concurrent use.
// Readers get a copy of the slice header; profiles are treated as immutable.
type Store struct {
	mu       sync.RWMutex
	path     string
	profiles []Profile
}

// NewStore returns a store seeded with profiles.
func NewStore(profiles []Profile) *Store {
	return &Store{profiles: profiles}
}

// OpenStore loads path into a new store. An empty path yields Defaults().
func OpenStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return NewStore(Defaults()), nil
	}
	profiles, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, profiles: profiles}, nil
}

// Path returns the backing file, if any.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// All returns the current collection.
func (s *Store) All() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles
}

// Get resolves id against the current collection (see Resolve).
func (s *Store) Get(id string) (Profile, error) {
	return Resolve(s.All(), id)
}

// Reload re-reads the backing file. On error the previous collection stays.
func (s *Store) Reload() error {
	path := s.Path()
	if path == "" {
		return nil
	}
	profiles, err := Load(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profiles = profiles
	s.mu.Unlock()
	return nil
}
