package gitrepo

import (
	"context"
	"strings"
	"time"

	"github.com/crackerjack/gitmetrics/internal/conventional"
	"github.com/crackerjack/gitmetrics/schema"
)

const checkoutPrefix = "checkout: moving from "

// GetCommits returns the commits authored within the window, newest first.
// Lines that do not have exactly five fields or carry an unparsable date are skipped.
func (a *Accessor) GetCommits(ctx context.Context, since, until time.Time) ([]schema.CommitData, error) {
	args := windowArgs([]string{"log", commitFormat}, since, until)
	proc, err := a.run(ctx, true, args...)
	if err != nil {
		return nil, err
	}

	var commits []schema.CommitData
	for i, line := range splitLines(proc.Stdout) {
		c, ok := a.parseCommitLine(i+1, line)
		if ok {
			commits = append(commits, c)
		}
	}
	return commits, nil
}

func (a *Accessor) parseCommitLine(lineNo int, line string) (schema.CommitData, bool) {
	fields := strings.Split(line, "|")
	if len(fields) != 5 {
		a.log.WarnCtx("skipping malformed git log line", map[string]any{"line": lineNo, "fields": len(fields)})
		return schema.CommitData{}, false
	}
	ts, err := time.Parse(isoLayout, strings.TrimSpace(fields[1]))
	if err != nil {
		a.log.WarnCtx("skipping git log line with bad date", map[string]any{"line": lineNo, "date": fields[1]})
		return schema.CommitData{}, false
	}

	message := fields[4]
	parsed := conventional.Parse(message)
	return schema.CommitData{
		Hash:              strings.TrimSpace(fields[0]),
		AuthorTimestamp:   ts,
		AuthorName:        fields[2],
		AuthorEmail:       fields[3],
		Message:           message,
		IsMerge:           schema.IsMergeMessage(message),
		IsConventional:    parsed.IsConventional,
		ConventionalType:  parsed.Type,
		ConventionalScope: parsed.Scope,
		HasBreakingChange: parsed.HasBreaking,
	}, true
}

// GetBranches returns a snapshot of local branch tips keyed by branch name.
func (a *Accessor) GetBranches(ctx context.Context) (map[string]string, error) {
	proc, err := a.run(ctx, true, "branch", branchFormat)
	if err != nil {
		return nil, err
	}

	branches := make(map[string]string)
	for _, line := range splitLines(proc.Stdout) {
		name, hash, ok := strings.Cut(line, "|")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			a.log.WarnCtx("skipping malformed git branch line", map[string]any{"line": line})
			continue
		}
		branches[name] = strings.TrimSpace(hash)
	}
	return branches, nil
}

// GetReflogEvents returns branch checkouts recorded in the HEAD reflog since the given time.
// Only "checkout: moving from A to B" entries are kept, as an event for B.
// Branch creation and deletion are not derived from the reflog.
func (a *Accessor) GetReflogEvents(ctx context.Context, since time.Time) ([]schema.BranchEvent, error) {
	args := []string{"reflog", "show", "--date=iso", reflogFormat}
	if !since.IsZero() {
		args = append(args, "--since="+since.Format(time.RFC3339))
	}
	proc, err := a.run(ctx, true, args...)
	if err != nil {
		return nil, err
	}

	var events []schema.BranchEvent
	for i, line := range splitLines(proc.Stdout) {
		fields := strings.SplitN(line, "|", 3)
		if len(fields) != 3 {
			a.log.WarnCtx("skipping malformed reflog line", map[string]any{"line": i + 1})
			continue
		}
		target, ok := checkoutTarget(fields[2])
		if !ok {
			continue
		}
		ts, ok := reflogTime(fields[1])
		if !ok {
			a.log.WarnCtx("skipping reflog line with bad date", map[string]any{"line": i + 1, "selector": fields[1]})
			continue
		}
		events = append(events, schema.BranchEvent{
			BranchName: target,
			EventType:  schema.BranchCheckout,
			Timestamp:  ts,
			CommitHash: strings.TrimSpace(fields[0]),
		})
	}
	return events, nil
}

// checkoutTarget extracts B from "checkout: moving from A to B".
func checkoutTarget(subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, checkoutPrefix)
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(rest, " to ")
	if idx < 0 {
		return "", false
	}
	target := strings.TrimSpace(rest[idx+len(" to "):])
	return target, target != ""
}

// reflogTime parses the date out of a selector such as "HEAD@{2024-01-02 10:00:00 +0100}".
func reflogTime(selector string) (time.Time, bool) {
	start := strings.IndexByte(selector, '{')
	end := strings.LastIndexByte(selector, '}')
	if start < 0 || end <= start {
		return time.Time{}, false
	}
	ts, err := time.Parse(isoLayout, selector[start+1:end])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
