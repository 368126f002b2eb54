// Package appfs embeds the files the binaries need at runtime: migrations, email templates and assets.
package appfs

import "embed"

//go:embed all:assets migrations
var FS embed.FS
