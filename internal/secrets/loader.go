package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the named environment variables.
// Unset variables are omitted.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// FileLoader returns a Loader that parses KEY=VALUE lines from path. Blank
// lines and lines starting with # are skipped and values may be quoted. An
// empty path or a missing file yields no secrets.
func FileLoader(path string) Loader {
	return func() (map[string]string, error) {
		vals := map[string]string{}
		if path == "" {
			return vals, nil
		}
		f, err := os.Open(path) //nolint:gosec // G304: operator-supplied secrets path
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return vals, nil
			}
			return nil, err
		}
		defer func() { _ = f.Close() }()

		sc := bufio.NewScanner(f)
		for n := 1; sc.Scan(); n++ {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			k, v, ok := strings.Cut(line, "=")
			if !ok || strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("%s:%d: expected KEY=VALUE", path, n)
			}
			vals[strings.TrimSpace(k)] = unquote(strings.TrimSpace(v))
		}
		return vals, sc.Err()
	}
}

// Merge combines loaders; later loaders win on conflicting keys.
func Merge(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		out := map[string]string{}
		for _, l := range loaders {
			vals, err := l()
			if err != nil {
				return nil, err
			}
			for k, v := range vals {
				out[k] = v
			}
		}
		return out, nil
	}
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
