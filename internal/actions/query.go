package actions

import (
	"strings"

	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/output"
	"gitgr.dev/gitgr/internal/runtime"
)

// DefaultQuery lists open changes that are ready for review
const DefaultQuery = "status:open -is:wip"

// QueryOptions are options for the query command
type QueryOptions struct {
	Query       string
	Mine        bool
	NeedsReview bool
}

// BuildQuery combines the query argument with the filter flags. Without a
// query argument or flags, DefaultQuery is used.
func BuildQuery(opts QueryOptions) string {
	q := strings.TrimSpace(opts.Query)
	if q == "" && !opts.Mine && !opts.NeedsReview {
		q = DefaultQuery
	}
	if opts.Mine {
		q += " is:open owner:self"
	}
	if opts.NeedsReview {
		if !opts.Mine {
			q += " is:open -owner:self"
		}
		q += " -is:wip -is:reviewed"
	}
	return strings.TrimSpace(q)
}

// QueryAction runs a query and prints the matching changes as a table
func QueryAction(ctx *runtime.Context, opts QueryOptions) error {
	result, err := ctx.Gerrit.Query(ctx.Context, gerrit.NewQuery(BuildQuery(opts)))
	if err != nil {
		return err
	}
	if len(result.Changes) == 0 {
		ctx.Splog.Info("No changes found.")
		return nil
	}
	ctx.Splog.Println(FormatQueryTable(result.Changes))
	return nil
}

// FormatQueryTable renders one row per change
func FormatQueryTable(changes []gerrit.Change) string {
	rows := make([][]string, 0, len(changes))
	for _, change := range changes {
		rows = append(rows, []string{
			output.ChangeNumber(change.Number.String()),
			change.Owner.String(),
			output.Status(string(change.Status), change.WIP),
			change.Subject,
		})
	}
	return output.RenderTable([]string{"Change", "Owner", "Status", "Subject"}, rows)
}
