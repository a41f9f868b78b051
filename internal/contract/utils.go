package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crackerjack/gitmetrics/schema"
	"github.com/fatih/color"
)

// Color variables for console output.
var (
	ExcellentColor = color.New(color.FgGreen, color.Bold) // healthy repository
	GoodColor      = color.New(color.FgCyan)              // fine, nothing urgent
	FairColor      = color.New(color.FgYellow)            // standard caution, not bold
	PoorColor      = color.New(color.FgRed, color.Bold)   // needs attention
)

// Relative locations of the SQLite metrics databases.
const (
	RepoDBFileName      = "git_metrics.db"
	PortfolioDBDir      = ".gitmetrics"
	PortfolioDBFileName = "git_metrics.db"
)

// GetColorLabel returns a colored health label for console output (table).
// It uses schema.GetHealthLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(score float64) string {
	text := schema.GetHealthLabel(score)

	switch text {
	case "Excellent":
		return ExcellentColor.Sprint(text)
	case "Good":
		return GoodColor.Sprint(text)
	case "Fair":
		return FairColor.Sprint(text)
	default:
		return PoorColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// IsGitRepository reports whether repoPath has a usable git directory.
func IsGitRepository(repoPath string) bool {
	return RequireGitRepository(repoPath) == nil
}

// RequireGitRepository returns an error wrapping ErrNotGitRepository when repoPath has no
// .git directory or a .git file that points to one.
func RequireGitRepository(repoPath string) error {
	gitDir, err := GitDir(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s has no .git directory. Verify the path or run 'git init'", ErrNotGitRepository, repoPath)
	}
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s points to missing git directory %s. Run 'git worktree prune' or re-clone", ErrNotGitRepository, repoPath, gitDir)
	}
	return nil
}

// GitDir resolves the directory holding the repository data of repoPath. A .git file
// (linked worktree, submodule) is followed through its gitdir line, and a linked worktree
// resolves to the common directory shared with its main repository.
func GitDir(repoPath string) (string, error) {
	dotGit := filepath.Join(repoPath, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("failed to read gitfile %s: %w", dotGit, err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	target, ok := strings.CutPrefix(strings.TrimSpace(line), "gitdir:")
	if !ok {
		return "", fmt.Errorf("%s is not a valid gitfile: missing 'gitdir:' line", dotGit)
	}
	target = resolveFrom(repoPath, strings.TrimSpace(target))

	if common, err := os.ReadFile(filepath.Join(target, "commondir")); err == nil {
		target = resolveFrom(target, strings.TrimSpace(string(common)))
	}
	return target, nil
}

func resolveFrom(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// GetRepoDBFilePath returns the per-repository SQLite path, git_metrics.db inside the
// directory GitDir resolves to (<repo>/.git/git_metrics.db for a plain clone).
func GetRepoDBFilePath(repoPath string) string {
	gitDir, err := GitDir(repoPath)
	if err != nil {
		gitDir = filepath.Join(repoPath, ".git")
	}
	return filepath.Join(gitDir, RepoDBFileName)
}

// GetPortfolioDBFilePath returns the portfolio SQLite path, .gitmetrics/git_metrics.db under baseDir.
func GetPortfolioDBFilePath(baseDir string) string {
	return filepath.Join(baseDir, PortfolioDBDir, PortfolioDBFileName)
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}
