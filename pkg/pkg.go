// Package pkg holds the identity of the dproj command and the errors shared
// by its packages.
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version returns the semantic version embedded at build time.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the command name. It appears in help text, default config
	// paths, and as the prefix of environment variables.
	Name = "dproj"
	// Description is a one-line summary used in help output.
	Description = "Lossless reader and editor of Delphi project files"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary author(s) of the project.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
