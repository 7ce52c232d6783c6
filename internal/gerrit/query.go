package gerrit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QueryOptions builds the arguments of `gerrit query`. --deadline is not modeled.
type QueryOptions struct {
	query           string
	allApprovals    bool
	allReviewers    bool
	comments        bool
	commitMessage   bool
	currentPatchSet bool
	dependencies    bool
	files           bool
	noLimit         bool
	patchSets       bool
	start           int
	submitRecords   bool
}

// NewQuery wraps a query string
func NewQuery(query string) QueryOptions {
	return QueryOptions{query: query}
}

// QueryString returns the wrapped query
func (q QueryOptions) QueryString() string {
	return q.query
}

// AllApprovals includes all patch sets and approvals
func (q QueryOptions) AllApprovals() QueryOptions {
	q.allApprovals = true
	return q
}

// AllReviewers includes all reviewers
func (q QueryOptions) AllReviewers() QueryOptions {
	q.allReviewers = true
	return q
}

// Comments includes patch set and inline comments
func (q QueryOptions) Comments() QueryOptions {
	q.comments = true
	return q
}

// CommitMessage includes the full commit message
func (q QueryOptions) CommitMessage() QueryOptions {
	q.commitMessage = true
	return q
}

// CurrentPatchSet includes the current patch set
func (q QueryOptions) CurrentPatchSet() QueryOptions {
	q.currentPatchSet = true
	return q
}

// Dependencies includes depends-on and needed-by information
func (q QueryOptions) Dependencies() QueryOptions {
	q.dependencies = true
	return q
}

// Files includes the file list of patch sets
func (q QueryOptions) Files() QueryOptions {
	q.files = true
	return q
}

// NoLimit returns all results
func (q QueryOptions) NoLimit() QueryOptions {
	q.noLimit = true
	return q
}

// PatchSets includes all patch sets
func (q QueryOptions) PatchSets() QueryOptions {
	q.patchSets = true
	return q
}

// Start skips the first n changes
func (q QueryOptions) Start(n int) QueryOptions {
	q.start = n
	return q
}

// SubmitRecords includes submit and label status
func (q QueryOptions) SubmitRecords() QueryOptions {
	q.submitRecords = true
	return q
}

// Args returns the arguments to append to `gerrit`
func (q QueryOptions) Args() []string {
	args := []string{"query", "--format", "json"}
	flags := []struct {
		set  bool
		name string
	}{
		{q.allApprovals, "--all-approvals"},
		{q.allReviewers, "--all-reviewers"},
		{q.comments, "--comments"},
		{q.commitMessage, "--commit-message"},
		{q.currentPatchSet, "--current-patch-set"},
		{q.dependencies, "--dependencies"},
		{q.files, "--files"},
		{q.noLimit, "--no-limit"},
		{q.patchSets, "--patch-sets"},
	}
	for _, f := range flags {
		if f.set {
			args = append(args, f.name)
		}
	}
	if q.start > 0 {
		args = append(args, "--start", strconv.Itoa(q.start))
	}
	if q.submitRecords {
		args = append(args, "--submit-records")
	}
	return append(args, "--", q.query)
}

// CacheID identifies the query and its flags
func (q QueryOptions) CacheID() string {
	return strings.Join(q.Args()[3:], " ")
}

// QueryStats is the trailing row of a query
type QueryStats struct {
	RowCount    int  `json:"rowCount"`
	MoreChanges bool `json:"moreChanges"`
}

// QueryResult holds the changes and stats of one query
type QueryResult struct {
	Changes []Change    `json:"changes"`
	Stats   *QueryStats `json:"stats,omitempty"`
}

// ParseQueryResult decodes JSON-lines query output
func ParseQueryResult(stdout string) (*QueryResult, error) {
	result := &QueryResult{Changes: []Change{}}
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var row struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("failed to parse query output line %q: %w", line, err)
		}

		if row.Type == "stats" {
			var stats QueryStats
			if err := json.Unmarshal([]byte(line), &stats); err != nil {
				return nil, fmt.Errorf("failed to parse query stats: %w", err)
			}
			result.Stats = &stats
			continue
		}
		if row.Type == "error" {
			var e struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal([]byte(line), &e)
			return nil, fmt.Errorf("query failed: %s", e.Message)
		}

		var change Change
		if err := json.Unmarshal([]byte(line), &change); err != nil {
			return nil, fmt.Errorf("failed to parse change: %w", err)
		}
		result.Changes = append(result.Changes, change)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query output: %w", err)
	}
	return result, nil
}
