package web

import "embed"

// Assets holds the browser UI served at the web root.
//
//go:embed index.html app.js
var Assets embed.FS
