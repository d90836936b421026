package gitcore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotRepository is returned when no .git marker is found between the start
// path and the filesystem root.
var ErrNotRepository = errors.New("Not inside a Git repository")

// Repository is a read-only handle on a Git directory's loose object store and refs.
type Repository struct {
	gitDir  string
	workDir string

	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used to report recovered conditions such as
// unreadable ref files.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a Repository for the repository containing path.
// path can be either:
//   - The working directory or any directory below it (will find .git upward)
//   - The .git directory itself
func NewRepository(path string, opts ...Option) (*Repository, error) {
	gitDir, workDir, err := findGitDirectory(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(gitDir)
	if err != nil {
		return nil, fmt.Errorf("git directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("git path is not a directory: %s", gitDir)
	}

	repo := &Repository{
		gitDir:  gitDir,
		workDir: workDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Name returns the repository's directory name.
func (r *Repository) Name() string {
	return filepath.Base(r.workDir)
}

// GitDir returns the absolute path of the .git directory.
func (r *Repository) GitDir() string {
	return r.gitDir
}

// WorkDir returns the absolute path of the working tree root.
func (r *Repository) WorkDir() string {
	return r.workDir
}

// findGitDirectory locates the .git directory starting from the given path.
// Returns both the .git directory and the working directory.
func findGitDirectory(startPath string) (gitDir string, workDir string, err error) {
	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if filepath.Base(absPath) == ".git" {
		info, err := os.Stat(absPath)
		if err == nil && info.IsDir() {
			return absPath, filepath.Dir(absPath), nil
		}
	}

	currentPath := absPath
	for {
		gitPath := filepath.Join(currentPath, ".git")

		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return gitPath, currentPath, nil
			}
			return handleGitFile(gitPath, currentPath)
		}

		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			return "", "", ErrNotRepository
		}
		currentPath = parentPath
	}
}

// handleGitFile handles the case where .git is a file (worktrees, submodules).
// .git file format: "gitdir: /path/to/actual/.git"
func handleGitFile(gitFilePath string, workDir string) (string, string, error) {
	content, err := os.ReadFile(gitFilePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read .git file: %w", err)
	}

	line := strings.TrimSpace(string(content))
	if !strings.HasPrefix(line, "gitdir:") {
		return "", "", fmt.Errorf("invalid .git file format: %s", gitFilePath)
	}

	gitDir := strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
	if gitDir == "" {
		return "", "", fmt.Errorf("invalid gitdir in %s", gitFilePath)
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(filepath.Dir(gitFilePath), gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	if _, err := os.Stat(gitDir); err != nil {
		return "", "", fmt.Errorf("gitdir points to non-existent directory: %s", gitDir)
	}

	return gitDir, workDir, nil
}
