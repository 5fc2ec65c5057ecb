package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotCached is returned when an artifact is requested that does not exist
var ErrNotCached = errors.New("artifact not cached")

// Policy selects how a previously produced artifact is judged reusable
type Policy int

const (
	// PolicyExists reuses an artifact whenever a file exists at the key
	// path. Cheapest check, the default; a source edited in place keeps
	// serving the stale artifact.
	PolicyExists Policy = iota
	// PolicyModTime reuses an artifact only if it exists and the source's
	// modification time is strictly earlier than the artifact's. One extra
	// stat call buys correctness for in-place source edits.
	PolicyModTime
	// PolicyRecompute never reuses an artifact. Development mode.
	PolicyRecompute
)

// ParsePolicy resolves a policy name from configuration
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "exists", "":
		return PolicyExists, nil
	case "mtime":
		return PolicyModTime, nil
	case "recompute", "never":
		return PolicyRecompute, nil
	default:
		return PolicyExists, fmt.Errorf("unknown cache policy: %q", name)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyModTime:
		return "mtime"
	case PolicyRecompute:
		return "recompute"
	default:
		return "exists"
	}
}

// Config holds cache store configuration
type Config struct {
	// Dir is the directory holding cached artifacts
	Dir string
	// URLPrefix replaces the cache directory segment in artifact URLs
	URLPrefix string
	// URLSeparator replaces OS path separators in artifact URLs
	URLSeparator string
	// Policy is the staleness policy applied to cached-status checks
	Policy Policy
}

// Store owns the cached-artifact directory: it composes artifact paths and
// URLs from cache keys and applies the staleness policy. Artifacts are only
// ever created or overwritten, never deleted; there is no eviction and no
// locking between concurrent writers of the same key.
type Store struct {
	dir       string
	urlPrefix string
	urlSep    string
	policy    Policy
}

// New creates a cache store
func New(cfg Config) *Store {
	if cfg.URLSeparator == "" {
		cfg.URLSeparator = "/"
	}
	// ArtifactURL swaps the directory prefix textually, so it must match
	// the cleaned form ArtifactPath produces
	return &Store{
		dir:       filepath.Clean(cfg.Dir),
		urlPrefix: cfg.URLPrefix,
		urlSep:    cfg.URLSeparator,
		policy:    cfg.Policy,
	}
}

// Dir returns the artifact directory
func (s *Store) Dir() string {
	return s.dir
}

// Policy returns the active staleness policy
func (s *Store) Policy() Policy {
	return s.policy
}

// EnsureDir creates the artifact directory if it does not exist
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	return nil
}

// ArtifactPath returns the filesystem path for a cache key
func (s *Store) ArtifactPath(key string) string {
	return filepath.Join(s.dir, key)
}

// ArtifactURL returns the URL-style path for a cache key: the cache
// directory segment is replaced by the URL prefix and OS path separators by
// the URL separator.
func (s *Store) ArtifactURL(key string) string {
	p := strings.Replace(s.ArtifactPath(key), s.dir, s.urlPrefix, 1)
	return strings.ReplaceAll(p, string(os.PathSeparator), s.urlSep)
}

// Fresh reports whether the artifact at key may be reused for sourcePath
// under the active staleness policy. A missing artifact is never an error,
// just a miss.
func (s *Store) Fresh(key, sourcePath string) (bool, error) {
	switch s.policy {
	case PolicyRecompute:
		return false, nil
	case PolicyModTime:
		art, err := os.Stat(s.ArtifactPath(key))
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat artifact: %w", err)
		}
		src, err := os.Stat(sourcePath)
		if err != nil {
			return false, fmt.Errorf("failed to stat source: %w", err)
		}
		return src.ModTime().Before(art.ModTime()), nil
	default:
		_, err := os.Stat(s.ArtifactPath(key))
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat artifact: %w", err)
		}
		return true, nil
	}
}

// Open opens the artifact at key for reading
func (s *Store) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(s.ArtifactPath(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// ReadFile reads the full artifact contents at key
func (s *Store) ReadFile(key string) ([]byte, error) {
	data, err := os.ReadFile(s.ArtifactPath(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// WriteFile stores encoded artifact bytes under key, overwriting in place
func (s *Store) WriteFile(key string, data []byte) error {
	if err := os.WriteFile(s.ArtifactPath(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// CopyTo copies the artifact at key to an arbitrary destination path
func (s *Store) CopyTo(key, dst string) error {
	src, err := s.Open(key)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	return nil
}
