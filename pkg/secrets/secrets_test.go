package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, dir, name, value string, perm os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), perm); err != nil {
		t.Fatalf("Failed to write secret: %v", err)
	}
	// WriteFile is subject to umask
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("Failed to chmod secret: %v", err)
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("TEST_SECRET_REDIS_PASSWORD", "hunter2")
	src := NewEnvSource("TEST_SECRET_")

	if got := src.Variable("redis-password"); got != "TEST_SECRET_REDIS_PASSWORD" {
		t.Errorf("Variable() = %q", got)
	}

	value, err := src.Lookup(context.Background(), "redis-password")
	if err != nil || value != "hunter2" {
		t.Fatalf("Lookup() = %q, %v", value, err)
	}

	if _, err := src.Lookup(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "pg-password", "s3cret\n", 0o600)
	writeSecret(t, dir, "readonly", "ro", 0o400)
	writeSecret(t, dir, "world-readable", "oops", 0o644)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		secret    string
		want      string
		notFound  bool
		errSubstr string
	}{
		{"trims whitespace", "pg-password", "s3cret", false, ""},
		{"read only file", "readonly", "ro", false, ""},
		{"missing", "nope", "", true, ""},
		{"insecure permissions", "world-readable", "", false, "insecure permissions"},
		{"directory", "nested", "", false, "not a regular file"},
		{"traversal", "../etc/passwd", "", false, "outside"},
	}

	src := NewFileSource(dir)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Lookup(context.Background(), tt.secret)
			switch {
			case tt.notFound:
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Expected ErrNotFound, got %v", err)
				}
			case tt.errSubstr != "":
				if err == nil || !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("Expected error containing %q, got %v", tt.errSubstr, err)
				}
				if errors.Is(err, ErrNotFound) {
					t.Errorf("Did not expect ErrNotFound: %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("Lookup failed: %v", err)
				}
				if got != tt.want {
					t.Errorf("Lookup() = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestResolver_Chain(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "webhook", "https://hooks.example.com/file", 0o600)
	writeSecret(t, dir, "shared", "from-file", 0o600)
	t.Setenv("CHAIN_SHARED", "from-env")

	r := NewResolver(NewEnvSource("CHAIN_"), NewFileSource(dir))
	ctx := context.Background()

	if v, err := r.Lookup(ctx, "shared"); err != nil || v != "from-env" {
		t.Errorf("Expected env to win, got %q, %v", v, err)
	}
	if v, err := r.Lookup(ctx, "webhook"); err != nil || v != "https://hooks.example.com/file" {
		t.Errorf("Expected file fallback, got %q, %v", v, err)
	}
	if _, err := r.Lookup(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResolver_StopsOnSourceFailure(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "leaky", "value", 0o644)
	t.Setenv("LATER_LEAKY", "env-value")

	r := NewResolver(NewFileSource(dir), NewEnvSource("LATER_"))
	if _, err := r.Lookup(context.Background(), "leaky"); err == nil {
		t.Error("Expected insecure file to fail the lookup")
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Setenv("RES_USER", "app")
	t.Setenv("RES_PASS", "pw")
	r := NewResolver(NewEnvSource("RES_"))

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain value", "localhost:6379", "localhost:6379", false},
		{"whole value", "${secret:pass}", "pw", false},
		{"embedded", "postgres://${secret:user}:${secret:pass}@db/t", "postgres://app:pw@db/t", false},
		{"missing", "${secret:nope}", "${secret:nope}", true},
		{"partially missing", "${secret:user}/${secret:nope}", "${secret:user}/${secret:nope}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveFields(t *testing.T) {
	t.Setenv("F_REDIS", "redis-pw")
	r := NewResolver(NewEnvSource("F_"))

	redis := "${secret:redis}"
	plain := "literal"
	empty := ""
	broken := "${secret:gone}"

	err := r.ResolveFields(context.Background(), &redis, &plain, &empty, nil, &broken)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for the broken field, got %v", err)
	}
	if redis != "redis-pw" || plain != "literal" || empty != "" {
		t.Errorf("Unexpected fields: %q %q %q", redis, plain, empty)
	}
	if broken != "${secret:gone}" {
		t.Errorf("Failed field was modified: %q", broken)
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"pw":             "***",
		"abcd":           "***",
		"redis-password": "re...rd",
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}
