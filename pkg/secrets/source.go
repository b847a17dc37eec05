package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no source holds a secret.
var ErrNotFound = errors.New("secret not found")

// Source looks up secret values by name.
type Source interface {
	// Lookup returns the secret value, or an error wrapping ErrNotFound
	// when the source does not hold it.
	Lookup(ctx context.Context, name string) (string, error)

	// Name identifies the source in logs and errors.
	Name() string
}

// EnvSource reads secrets from environment variables. The name
// "redis-password" with prefix "TOLLGATE_SECRET_" maps to
// TOLLGATE_SECRET_REDIS_PASSWORD.
type EnvSource struct {
	Prefix string
}

// NewEnvSource creates an environment source.
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{Prefix: prefix}
}

// Lookup implements Source. Empty variables count as missing.
func (s *EnvSource) Lookup(ctx context.Context, name string) (string, error) {
	key := s.Variable(name)
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: %s (env var %s)", ErrNotFound, name, key)
	}
	return value, nil
}

// Variable returns the environment variable consulted for name.
func (s *EnvSource) Variable(name string) string {
	return s.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Name implements Source.
func (s *EnvSource) Name() string { return "env" }

// FileSource reads each secret from a file of the same name in Dir, the
// layout used by Docker and Kubernetes secret mounts. Files must be mode
// 0600 or 0400. Surrounding whitespace is trimmed.
type FileSource struct {
	Dir string
}

// NewFileSource creates a file source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Lookup implements Source.
func (s *FileSource) Lookup(ctx context.Context, name string) (string, error) {
	base, err := filepath.Abs(s.Dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve secrets dir: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(base, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret name %q: outside %s", name, s.Dir)
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s (file %s)", ErrNotFound, name, path)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret %s is not a regular file", path)
	}
	if perm := info.Mode().Perm(); perm != 0o600 && perm != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, perm)
	}

	// #nosec G304 - path is confined to Dir above
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Name implements Source.
func (s *FileSource) Name() string { return "file" }
