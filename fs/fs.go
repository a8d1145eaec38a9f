// Package appfs embeds the files shipped with the binary: SQL migrations, HTML/email templates
// and static assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates static
var FS embed.FS
