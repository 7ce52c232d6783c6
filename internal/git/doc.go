// Package git provides the local repository operations git-gr needs.
//
// Reads (HEAD, branches, commit messages, remotes) go through go-git.
// Anything that mutates the worktree (fetch, checkout, cherry-pick, rebase,
// push) shells out to the git binary so hooks, credentials and conflict state
// behave exactly as they do for the user.
package git
