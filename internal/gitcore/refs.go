package gitcore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxSymrefDepth bounds symbolic ref chains so a ref pointing at itself fails
// instead of recursing forever.
const maxSymrefDepth = 5

// Branches reads every loose ref under refs/heads and returns a map from branch
// name (slash separated, relative to refs/heads) to the commit it points at.
// A repository without refs/heads yields an empty map.
func (r *Repository) Branches() (map[string]Hash, error) {
	branches := make(map[string]Hash)
	headsDir := filepath.Join(r.gitDir, "refs", "heads")

	if _, err := os.Stat(headsDir); os.IsNotExist(err) {
		// No branches yet, this is ok.
		return branches, nil
	} else if err != nil {
		return nil, err
	}

	err := filepath.Walk(headsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(headsDir, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(relPath)
		hash, err := r.resolveRef(path, 0)
		if err != nil {
			// Log the error but continue with other potentially valid refs.
			r.logger.Warn("error resolving ref", "branch", name, "error", err)
			return nil
		}

		branches[name] = hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}

	return branches, nil
}

// resolveRef reads a single ref file and returns its hash.
// Handles both direct hashes and symbolic refs.
func (r *Repository) resolveRef(path string, depth int) (Hash, error) {
	if depth > maxSymrefDepth {
		return "", fmt.Errorf("symbolic ref chain too deep at %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(content))

	if strings.HasPrefix(line, "ref: ") {
		targetRef := strings.TrimPrefix(line, "ref: ")
		targetPath := filepath.Join(r.gitDir, filepath.FromSlash(targetRef))
		return r.resolveRef(targetPath, depth+1)
	}

	if line == "" {
		return "", fmt.Errorf("empty ref file %s", path)
	}
	return Hash(line), nil
}
