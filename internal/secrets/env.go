package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/subosito/gotenv"
)

// EnvResolver reads secrets from the process environment, falling back to
// values parsed from a dotenv file. The file never overrides the process and
// is never written back into it.
type EnvResolver struct {
	lookup func(string) (string, bool)
	dotenv gotenv.Env
}

// NewEnvResolver creates a resolver over os.LookupEnv. An empty path or a
// missing file means no dotenv fallback.
func NewEnvResolver(dotenvPath string) (*EnvResolver, error) {
	env, err := readDotenv(dotenvPath)
	if err != nil {
		return nil, err
	}
	return &EnvResolver{lookup: os.LookupEnv, dotenv: env}, nil
}

// NewEnvResolverFrom creates a resolver over an explicit lookup function and
// dotenv map.
func NewEnvResolverFrom(lookup func(string) (string, bool), dotenv map[string]string) *EnvResolver {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return &EnvResolver{lookup: lookup, dotenv: dotenv}
}

// Resolve implements Resolver.
func (r *EnvResolver) Resolve(_ context.Context, ref Ref) (string, error) {
	if ref.Scheme() != SchemeEnv {
		return "", wrapRef(ref, fmt.Errorf("%w: env resolver cannot read scheme %q", ErrInvalidRef, ref.Scheme()))
	}
	if err := ref.Validate(); err != nil {
		return "", wrapRef(ref, err)
	}

	name := ref.Key()
	if v, ok := r.lookup(name); ok && v != "" {
		return v, nil
	}
	if v := r.dotenv[name]; v != "" {
		return v, nil
	}
	return "", wrapRef(ref, ErrSecretNotFound)
}

func readDotenv(path string) (gotenv.Env, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open dotenv file: %w", err)
	}
	defer func() { _ = f.Close() }()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parse dotenv file %s: %w", path, err)
	}
	return env, nil
}
