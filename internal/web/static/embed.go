package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:console
var consoleFS embed.FS

// GetFileSystem returns an http.FileSystem for the embedded console.
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(consoleFS, "console")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}

// HasConsole returns true if the console directory has an index page.
func HasConsole() bool {
	_, err := fs.Stat(consoleFS, "console/index.html")
	return err == nil
}
