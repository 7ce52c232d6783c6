// Package config manages git-gr's per-repository configuration.
//
// Settings live in .git-gr_config under the git directory. Environment
// variables override them for a single invocation.
package config
