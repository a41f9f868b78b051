package gitrepo

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/schema"
)

var (
	mergeBranchRe       = regexp.MustCompile(`^Merge branch '([^']+)'(?: of \S+)?(?: into (\S+))?`)
	mergePullRequestRe  = regexp.MustCompile(`^Merge pull request #\d+ from [^/\s]+/(\S+)`)
	mergeRemoteBranchRe = regexp.MustCompile(`^Merge remote-tracking branch '([^']+)'(?: into (\S+))?`)
)

// GetMergeHistory returns the merge commits within the window, newest first,
// each with a conflict assessment from the configured detection strategy.
func (a *Accessor) GetMergeHistory(ctx context.Context, since, until time.Time) ([]schema.MergeEvent, error) {
	args := windowArgs([]string{"log", "--merges", mergeFormat}, since, until)
	proc, err := a.run(ctx, true, args...)
	if err != nil {
		return nil, err
	}

	var merges []schema.MergeEvent
	for i, line := range splitLines(proc.Stdout) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields := strings.SplitN(line, "|", 5)
		if len(fields) != 5 {
			a.log.WarnCtx("skipping malformed merge line", map[string]any{"line": i + 1, "fields": len(fields)})
			continue
		}
		ts, err := time.Parse(isoLayout, strings.TrimSpace(fields[1]))
		if err != nil {
			a.log.WarnCtx("skipping merge line with bad date", map[string]any{"line": i + 1, "date": fields[1]})
			continue
		}

		source, target := ParseMergeBranches(fields[4])
		ev := schema.MergeEvent{
			MergeHash:      strings.TrimSpace(fields[0]),
			MergeTimestamp: ts,
			MergeType:      schema.MergeTypeMerge,
			SourceBranch:   source,
			TargetBranch:   target,
			ParentHashes:   strings.Fields(fields[2]),
			ConflictFiles:  []string{},
		}
		if err := a.assessConflicts(ctx, &ev, strings.TrimSpace(fields[3])); err != nil {
			return nil, err
		}
		merges = append(merges, ev)
	}
	return merges, nil
}

// ParseMergeBranches extracts source and target branch names from a standard merge subject.
// Unknown subjects yield empty names.
func ParseMergeBranches(subject string) (source, target string) {
	if m := mergeBranchRe.FindStringSubmatch(subject); m != nil {
		return m[1], m[2]
	}
	if m := mergePullRequestRe.FindStringSubmatch(subject); m != nil {
		return m[1], ""
	}
	if m := mergeRemoteBranchRe.FindStringSubmatch(subject); m != nil {
		source := m[1]
		if _, branch, ok := strings.Cut(source, "/"); ok {
			source = branch
		}
		return source, m[2]
	}
	return "", ""
}

// assessConflicts fills HasConflicts, ConflictFiles and DetectionMethod.
func (a *Accessor) assessConflicts(ctx context.Context, ev *schema.MergeEvent, mergeTree string) error {
	ev.DetectionMethod = a.detection
	if len(ev.ParentHashes) < 2 {
		return nil
	}

	if a.detection == schema.TreeDetection && len(ev.ParentHashes) == 2 {
		handled, err := a.treeConflicts(ctx, ev, mergeTree)
		if err != nil || handled {
			return err
		}
	}
	return a.parentConflicts(ctx, ev)
}

// treeConflicts re-merges the two parents with merge-tree and compares the result with the
// recorded merge tree. It reports handled=false when merge-tree is unusable for this merge.
func (a *Accessor) treeConflicts(ctx context.Context, ev *schema.MergeEvent, mergeTree string) (bool, error) {
	p1, p2 := ev.ParentHashes[0], ev.ParentHashes[1]
	proc, err := a.run(ctx, false, "merge-tree", "--write-tree", "--name-only", "--no-messages", p1, p2)
	if err != nil {
		return false, err
	}

	lines := splitLines(proc.Stdout)
	switch proc.ExitCode {
	case 1:
		ev.DetectionMethod = schema.TreeDetection
		ev.HasConflicts = true
		if len(lines) > 1 {
			ev.ConflictFiles = dedupe(lines[1:])
		}
		return true, nil
	case 0:
		ev.DetectionMethod = schema.TreeDetection
		if len(lines) == 0 || mergeTree == "" {
			return true, nil
		}
		clean := strings.TrimSpace(lines[0])
		if clean == mergeTree {
			return true, nil
		}
		// Clean re-merge differs from what was committed: resolved by hand.
		diff, err := a.run(ctx, true, "diff", "--name-only", clean, ev.MergeHash)
		if err != nil {
			return false, err
		}
		ev.HasConflicts = true
		ev.ConflictFiles = dedupe(splitLines(diff.Stdout))
		return true, nil
	default:
		a.log.DebugCtx("merge-tree unavailable, using parent heuristic", map[string]any{
			"merge":     ev.MergeHash,
			"exit_code": proc.ExitCode,
		})
		return false, nil
	}
}

// parentConflicts flags every multi-parent merge and lists files that differ between the first two parents.
func (a *Accessor) parentConflicts(ctx context.Context, ev *schema.MergeEvent) error {
	ev.DetectionMethod = schema.ParentsDetection
	ev.HasConflicts = true
	diff, err := a.run(ctx, true, "diff", "--name-only", ev.ParentHashes[0], ev.ParentHashes[1])
	if err != nil {
		return err
	}
	ev.ConflictFiles = dedupe(splitLines(diff.Stdout))
	return nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
