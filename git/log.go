package git

import (
	"context"
	"strconv"
	"strings"
)

// Log page size limits.
const (
	DefaultLogLimit = 50
	MaxLogLimit     = 1000
)

// logFormat separates fields with US (0x1f) and records with RS (0x1e) so
// commit bodies can contain anything else.
const logFormat = "%H%x1f%h%x1f%an%x1f%ae%x1f%at%x1f%P%x1f%s%x1f%B%x1e"

// LogEntry is one commit in a LogResponse.
type LogEntry struct {
	SHA         string   `json:"sha"`
	ShortSHA    string   `json:"shortSha"`
	Author      string   `json:"author"`
	AuthorEmail string   `json:"authorEmail"`
	Timestamp   int64    `json:"timestamp"` // author time, unix seconds
	Subject     string   `json:"subject"`
	Message     string   `json:"message"`
	Parents     []string `json:"parents"`
}

// LogResponse is a page of history, most recent first.
type LogResponse struct {
	Entries  []LogEntry `json:"entries"`
	HasMore  bool       `json:"hasMore"`
	Total    int        `json:"total"`
	Ahead    int        `json:"ahead"`
	Behind   int        `json:"behind"`
	Upstream string     `json:"upstream,omitempty"`
}

// Log returns up to limit commits reachable from HEAD in git's own order.
// limit <= 0 selects DefaultLogLimit. An unborn HEAD yields an empty page.
func (s *GitService) Log(ctx context.Context, root string, limit int) (*LogResponse, error) {
	const op = "log"

	if limit <= 0 {
		limit = DefaultLogLimit
	}
	limit = min(limit, MaxLogLimit)

	resp := &LogResponse{Entries: []LogEntry{}}
	if !s.hasHead(ctx, root) {
		return resp, nil
	}

	out, err := s.run(ctx, root, "log", "--no-color", "-n", strconv.Itoa(limit+1), "--format="+logFormat, "HEAD")
	if err != nil {
		return nil, ioError(op, err)
	}
	entries := parseLog(string(out))
	if len(entries) > limit {
		resp.HasMore = true
		entries = entries[:limit]
	}
	resp.Entries = entries

	if out, err := s.run(ctx, root, "rev-list", "--count", "HEAD"); err == nil {
		resp.Total, _ = strconv.Atoi(strings.TrimSpace(string(out)))
	}
	resp.Upstream, resp.Ahead, resp.Behind = s.upstreamDivergence(ctx, root)
	return resp, nil
}

func parseLog(out string) []LogEntry {
	var entries []LogEntry
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.TrimLeft(rec, "\n")
		if rec == "" {
			continue
		}
		f := strings.SplitN(rec, "\x1f", 8)
		if len(f) != 8 {
			continue
		}
		ts, _ := strconv.ParseInt(f[4], 10, 64)
		parents := strings.Fields(f[5])
		if parents == nil {
			parents = []string{}
		}
		entries = append(entries, LogEntry{
			SHA:         f[0],
			ShortSHA:    f[1],
			Author:      f[2],
			AuthorEmail: f[3],
			Timestamp:   ts,
			Parents:     parents,
			Subject:     f[6],
			Message:     strings.TrimRight(f[7], "\n"),
		})
	}
	return entries
}

// upstreamDivergence reports the upstream of the current branch and how far
// HEAD is ahead of and behind it. All zero values when there is none.
func (s *GitService) upstreamDivergence(ctx context.Context, root string) (upstream string, ahead, behind int) {
	out, err := s.run(ctx, root, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil {
		return "", 0, 0
	}
	upstream = strings.TrimSpace(string(out))

	out, err = s.run(ctx, root, "rev-list", "--left-right", "--count", "HEAD...@{upstream}")
	if err != nil {
		return upstream, 0, 0
	}
	fields := strings.Fields(string(out))
	if len(fields) == 2 {
		ahead, _ = strconv.Atoi(fields[0])
		behind, _ = strconv.Atoi(fields[1])
	}
	return upstream, ahead, behind
}
