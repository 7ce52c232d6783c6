// Package actions provides the business logic behind git-gr's commands.
//
// Each action takes a runtime.Context, which carries the repository, the
// Gerrit client, the restack engine and the logger.
package actions
