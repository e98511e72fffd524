// Package web embeds the platform's HTML pages and static assets. Pages
// carry {{...}} slot markers that the route engine expands per request;
// this package only stores the bytes.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed pages/*
var content embed.FS

// Page returns the named embedded page, e.g. "portal.html".
func Page(name string) ([]byte, error) {
	b, err := content.ReadFile("pages/" + name)
	if err != nil {
		return nil, fmt.Errorf("loading embedded page %s: %w", name, err)
	}
	return b, nil
}

// MustPage is Page for pages compiled into the binary; a miss is a build
// defect, not a runtime condition.
func MustPage(name string) []byte {
	b, err := Page(name)
	if err != nil {
		panic(err)
	}
	return b
}

// Assets returns the embedded static asset tree rooted at pages/assets.
func Assets() (fs.FS, error) {
	return fs.Sub(content, "pages/assets")
}
