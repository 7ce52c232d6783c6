package actions

import (
	"fmt"
	"strings"

	"gitgr.dev/gitgr/internal/gerrit"
	"gitgr.dev/gitgr/internal/git"
	"gitgr.dev/gitgr/internal/runtime"
)

// ChangeKeyFor turns a command argument into a change lookup. An empty
// argument means HEAD's change.
func ChangeKeyFor(ctx *runtime.Context, query string) (gerrit.ChangeKey, error) {
	if strings.TrimSpace(query) != "" {
		return gerrit.ParseChangeKey(query), nil
	}
	id, err := ctx.Repo.ChangeID(ctx.Context, "HEAD")
	if err != nil {
		return gerrit.ChangeKey{}, fmt.Errorf("failed to get Change-Id for HEAD: %w", err)
	}
	return gerrit.IDKey(gerrit.ChangeID(id)), nil
}

// ResolveChange finds the change a command argument names
func ResolveChange(ctx *runtime.Context, query string) (*gerrit.Change, error) {
	key, err := ChangeKeyFor(ctx, query)
	if err != nil {
		return nil, err
	}
	return ctx.Gerrit.GetChange(ctx.Context, key)
}

// CheckoutChange detaches HEAD at a change's patchset. A zero patchset means
// the current one.
func CheckoutChange(ctx *runtime.Context, number gerrit.ChangeNumber, patchset gerrit.Patchset) error {
	var commit git.CommitHash
	var err error
	if patchset == 0 {
		commit, err = ctx.Gerrit.FetchCurrent(ctx.Context, number)
	} else {
		commit, err = ctx.Gerrit.FetchChange(ctx.Context, gerrit.ChangePatchset{Change: number, Patchset: patchset})
	}
	if err != nil {
		return err
	}

	if err := ctx.Repo.CheckoutDetached(ctx.Context, commit.String()); err != nil {
		return fmt.Errorf("failed to check out %d: %w", number, err)
	}
	ctx.Splog.Info("Checked out %s at %s.", ctx.Gerrit.Pretty(ctx.Context, number), commit.Abbrev())
	return nil
}

// FetchAction fetches a change's current patchset and prints its commit
func FetchAction(ctx *runtime.Context, number gerrit.ChangeNumber) error {
	commit, err := ctx.Gerrit.FetchCurrent(ctx.Context, number)
	if err != nil {
		return err
	}
	ctx.Splog.Println(commit.String())
	return nil
}

// ViewAction opens a change in the browser
func ViewAction(ctx *runtime.Context, query string) error {
	change, err := ResolveChange(ctx, query)
	if err != nil {
		return err
	}
	if change.URL == "" {
		return fmt.Errorf("change %d has no URL", change.Number)
	}
	ctx.Splog.Info("Opening %s", change.URL)
	if err := openBrowser(change.URL); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// PushOptions are options for the push command
type PushOptions struct {
	// Branch is the branch or commit to push; HEAD when empty.
	Branch string
	// Target is the branch to review against; the remote's default branch when empty.
	Target string
	// Restack restacks the changes that depend on the pushed one afterwards.
	Restack bool
}

// PushAction uploads a commit for review
func PushAction(ctx *runtime.Context, opts PushOptions) error {
	rev := opts.Branch
	if rev == "" {
		rev = "HEAD"
	}
	target := opts.Target
	if target == "" {
		branch, err := ctx.Repo.DefaultBranch(ctx.Context, ctx.Gerrit.Remote())
		if err != nil {
			return err
		}
		target = branch
	}

	commit, err := ctx.Repo.RevParse(ctx.Context, rev)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", rev, err)
	}

	// The stack is discovered before the push so the pushed change's
	// children are still attached to it.
	if opts.Restack {
		if _, err := ctx.Restack.CreateTodo(ctx.Context, rev); err != nil {
			return err
		}
	}

	ctx.Splog.Info("Pushing %s to refs/for/%s", commit.Abbrev(), target)
	if err := ctx.Gerrit.Push(ctx.Context, commit, target); err != nil {
		if opts.Restack {
			if abortErr := ctx.Restack.Abort(ctx.Context); abortErr != nil {
				ctx.Splog.Debug("Failed to drop restack todo: %v", abortErr)
			}
		}
		return err
	}

	if id, err := ctx.Repo.ChangeID(ctx.Context, rev); err == nil {
		if change, err := ctx.Gerrit.GetChange(ctx.Context, gerrit.IDKey(gerrit.ChangeID(id))); err == nil {
			ctx.Gerrit.InvalidateChange(change.Number)
		}
	}

	if opts.Restack {
		return ctx.Restack.Restack(ctx.Context, rev)
	}
	return nil
}

// CommandAction runs `gerrit ARGS...` on the server and prints the output
func CommandAction(ctx *runtime.Context, args []string) error {
	out, err := ctx.Gerrit.Command(ctx.Context, args...)
	if err != nil {
		return err
	}
	if out != "" {
		ctx.Splog.Println(strings.TrimRight(out, "\n"))
	}
	return nil
}

// APIAction makes a REST request and prints the response
func APIAction(ctx *runtime.Context, method, endpoint string) error {
	out, err := ctx.Gerrit.API(ctx.Context, strings.ToUpper(method), endpoint)
	if err != nil {
		return err
	}
	ctx.Splog.Println(out)
	return nil
}

// ClearCacheAction forgets every cached answer for the project
func ClearCacheAction(ctx *runtime.Context) error {
	if err := ctx.Gerrit.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	ctx.Splog.Info("Cleared cache for %s.", ctx.Gerrit.Project().Identity())
	return nil
}
