// Package runtime provides the execution context for git-gr commands.
//
// It wires the repository, its Gerrit remote, the cache and the logger
// together once per invocation so commands only deal with what they do.
package runtime
