package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
)

var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver replaces secret references using a chain of sources.
type Resolver struct {
	sources []Source
	logger  *slog.Logger
}

// NewResolver creates a resolver that tries sources in order.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		logger:  slog.Default().With("component", "secrets"),
	}
}

// Lookup returns the value from the first source holding name. A source
// error other than ErrNotFound stops the search.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	for _, src := range r.sources {
		value, err := src.Lookup(ctx, name)
		if err == nil {
			r.logger.Debug("secret resolved", "name", redact(name), "source", src.Name())
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("secret %q from %s: %w", name, src.Name(), err)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} reference in s. On error the input
// is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, s string) (string, error) {
	var errs []error
	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := refPattern.FindStringSubmatch(match)[1]
		value, err := r.Lookup(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return s, errors.Join(errs...)
	}
	return out, nil
}

// ResolveFields resolves each field in place. Fields that fail keep their
// original value; all failures are returned together.
func (r *Resolver) ResolveFields(ctx context.Context, fields ...*string) error {
	var errs []error
	for _, f := range fields {
		if f == nil || *f == "" {
			continue
		}
		value, err := r.Resolve(ctx, *f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*f = value
	}
	return errors.Join(errs...)
}

func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
