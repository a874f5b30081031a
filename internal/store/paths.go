package store

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/harunnryd/thinx/internal/errors"
)

var validIdentity = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

const (
	LogExt        = ".jsonl"
	IndexFileName = "index.json"
	LockFileName  = "history.lock"
)

// ValidateIdentity rejects names that could escape the history directory or
// collide with another identity's log after path cleaning.
func ValidateIdentity(identity string) error {
	if identity == "" || identity == "." || identity == ".." {
		return errors.InvalidInput(fmt.Sprintf("identity %q", identity))
	}
	if !validIdentity.MatchString(identity) {
		return errors.InvalidInput(fmt.Sprintf("identity %q contains unsupported characters", identity))
	}
	return nil
}

func LogPath(dir, identity string) (string, error) {
	if err := ValidateIdentity(identity); err != nil {
		return "", err
	}
	if dir == "" {
		return "", errors.Config("history dir is empty")
	}
	return filepath.Join(dir, identity+LogExt), nil
}

func IndexPath(dir string) string {
	return filepath.Join(dir, IndexFileName)
}

func LockPath(dir string) string {
	return filepath.Join(dir, LockFileName)
}
