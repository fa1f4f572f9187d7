// Package web embeds the default public assets of the file manager.
//
// The assets are served when the store has no file at the requested public
// path, so a fresh server answers "/" without any setup.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:public
var publicAssets embed.FS

// Assets returns the embedded public directory. Names are relative to the
// public root, e.g. "index.html".
func Assets() fs.FS {
	sub, err := fs.Sub(publicAssets, "public")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return sub
}
