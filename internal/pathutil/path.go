package pathutil

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand resolves environment variables and "~/" home shortcuts.
func Expand(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(expanded, "~"), "/"))
	}

	return filepath.Clean(expanded), nil
}

// Resolve expands a configured path and canonicalizes it.
func Resolve(path string) (string, error) {
	expanded, err := Expand(path)
	if err != nil {
		return "", err
	}
	return Canonical(expanded)
}

// Canonical returns the absolute form of path with symlinks evaluated. It
// never expands "~" or "$VAR", so it is safe for request input. A path that
// does not exist is returned cleaned but unevaluated.
func Canonical(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if evaluated, err := filepath.EvalSymlinks(abs); err == nil {
		return evaluated, nil
	}
	return abs, nil
}

// Within reports whether path equals or sits below one of roots. path is
// taken literally; roots are configuration and get expanded. Both sides are
// canonicalized so "..", symlinks and sibling prefixes ("/a/bc" vs "/a/b")
// cannot escape.
func Within(path string, roots []string) bool {
	target, err := Canonical(path)
	if err != nil {
		return false
	}
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		base, err := Resolve(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, target)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

func homeDir() (string, error) {
	candidates := []func() string{
		func() string {
			home, _ := os.UserHomeDir()
			return home
		},
		func() string {
			if current, err := user.Current(); err == nil {
				return current.HomeDir
			}
			return ""
		},
	}
	for _, candidate := range candidates {
		if home := strings.TrimSpace(candidate()); usableHome(home) {
			return home, nil
		}
	}
	return "", fmt.Errorf("HOME is not set or not fully resolved")
}

func usableHome(home string) bool {
	return home != "" && home != "~" && !strings.HasPrefix(home, "~/")
}
