package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Input file references arrive over the API and are resolved strictly
// inside InputDir. The name is validated syntactically first, then the
// resolved path is re-verified after symlink resolution so a symlinked
// input cannot escape the directory.

var (
	ErrInvalidInputName = errors.New("invalid input file name")
	ErrInputNotFound    = errors.New("input file not found")
	ErrOutsideInputDir  = errors.New("input file resolves outside the input directory")
)

var inputNameRE = regexp.MustCompile(`^[A-Za-z0-9._-]{1,255}$`)

// ValidateInputName checks the syntactic rules: allowed characters only,
// 1-255 long, no leading or trailing dot, no path separators.
func ValidateInputName(name string) error {
	if !inputNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidInputName, name)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: %q must not begin or end with a dot", ErrInvalidInputName, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidInputName, name)
	}
	return nil
}

// ResolveInputPath validates name, joins it onto inputDir, and verifies the
// symlink-resolved result still lives inside the (also resolved) directory.
func ResolveInputPath(inputDir, name string) (string, error) {
	if err := ValidateInputName(name); err != nil {
		return "", err
	}

	absDir, err := filepath.Abs(inputDir)
	if err != nil {
		return "", fmt.Errorf("resolve input dir: %w", err)
	}
	resolvedDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return "", fmt.Errorf("resolve input dir: %w", err)
	}

	candidate := filepath.Join(resolvedDir, name)
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrInputNotFound, name)
		}
		return "", fmt.Errorf("resolve input file: %w", err)
	}

	if resolved != resolvedDir && !strings.HasPrefix(resolved, resolvedDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideInputDir, name)
	}
	return resolved, nil
}
