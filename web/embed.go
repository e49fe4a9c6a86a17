package web

import "embed"

// StaticFS embeds the app shell: the page, its manifest and the icons the
// offline controller precaches.
//
//go:embed static/*
var StaticFS embed.FS
