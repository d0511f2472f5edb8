package web

import "embed"

// Static embeds the browser client.
//
//go:embed static
var Static embed.FS
