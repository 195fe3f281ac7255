package secrets

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// File modes for the credentials file. The file stays owner-writable until
// the API key has been added; after that it is read-only.
const (
	ModePendingKey fs.FileMode = 0o600
	ModeSealed     fs.FileMode = 0o400
)

// EnvFileStore reads and atomically rewrites a NAME=value credentials file.
// It does not coordinate with other processes: two concurrent writers may
// lose each other's additions.
type EnvFileStore struct {
	path string
	log  zerolog.Logger
}

// NewEnvFileStore returns a store for the file at path.
func NewEnvFileStore(path string, log zerolog.Logger) *EnvFileStore {
	return &EnvFileStore{path: path, log: log}
}

// Path returns the credentials file location.
func (s *EnvFileStore) Path() string {
	return s.path
}

// Load parses the credentials file. A missing file yields an empty snapshot.
func (s *EnvFileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Parse(nil), nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil && enforceMode && info.Mode().Perm()&0o077 != 0 {
		s.log.Warn().
			Str("path", s.path).
			Str("mode", info.Mode().Perm().String()).
			Msg("credentials file is accessible by group or other")
	}

	return Parse(data), nil
}

// MergeAndPersist appends every resource whose derived name is not yet in
// snap and writes the result back. Existing entries are never changed. When
// nothing new was found the file is left untouched and Updated is false.
// snap is only updated once the write succeeded.
func (s *EnvFileStore) MergeAndPersist(snap *Snapshot, resources []Resource) (MergeResult, error) {
	var res MergeResult
	merged := snap.clone()

	for _, r := range resources {
		name := WebsiteName(r.DisplayName)
		if name == "" || r.ID == "" {
			res.Skipped = append(res.Skipped, Skip{Resource: r, Name: name, Reason: SkipInvalid})
			continue
		}

		if merged.Has(name) {
			reason := SkipCollision
			if existing, err := merged.Get(name); err == nil && existing == r.ID {
				reason = SkipExisting
			}
			res.Skipped = append(res.Skipped, Skip{Resource: r, Name: name, Reason: reason})
			continue
		}

		merged.Append(name, r.ID)
		res.Added = append(res.Added, Entry{Name: name, Value: r.ID})
	}

	if len(res.Added) == 0 {
		return res, nil
	}

	if err := s.persist(merged); err != nil {
		return MergeResult{}, err
	}
	*snap = *merged
	res.Updated = true
	return res, nil
}

// SetAPIKey stores the reserved API key entry. The key is write-once: if the
// file already has a non-empty one, ErrKeyExists is returned and nothing is
// written. An empty PAGEVITALS_API_KEY= line is filled in place.
func (s *EnvFileStore) SetAPIKey(snap *Snapshot, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if snap.APIKey() != "" {
		return ErrKeyExists
	}
	if _, parsed := snap.index[APIKeyName]; !parsed && snap.Has(APIKeyName) {
		return fmt.Errorf("%w: %s has a value that cannot be parsed", ErrKeyExists, APIKeyName)
	}

	next := snap.clone()
	next.Set(APIKeyName, key)
	if err := s.persist(next); err != nil {
		return err
	}
	*snap = *next
	return nil
}

// persist replaces the credentials file with snap. The data goes to a
// randomly named file in the same directory, which is locked down and checked
// before it is renamed over the target.
func (s *EnvFileStore) persist(snap *Snapshot) error {
	mode := ModePendingKey
	if snap.APIKey() != "" {
		mode = ModeSealed
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary credentials file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, err := os.Lstat(tmpPath); err == nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(snap.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credentials permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credentials: %w", err)
	}

	if err := verifyStaged(tmpPath); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}

	s.log.Debug().Str("path", s.path).Str("mode", mode.String()).Msg("credentials file written")
	return nil
}

// ownerCheck is swapped out in tests.
var ownerCheck = checkOwner

// verifyStaged checks the temporary file by path, so a swapped-in symlink or
// a file planted by someone else is caught before the rename.
func verifyStaged(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("failed to stat temporary credentials file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrOwnership, path)
	}
	if err := ownerCheck(info); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOwnership, path, err)
	}
	if enforceMode && info.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf("%w: %s has mode %s", ErrInsecureMode, path, info.Mode().Perm())
	}
	return nil
}
