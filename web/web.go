// Package web embeds the browser client served from the relay's document root.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Assets returns the document root: index.html at the top, scripts under js/.
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// static is compiled in, so the subtree always exists.
		panic(err)
	}
	return sub
}
