package web

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

// IndexPath is served when a requested path does not resolve
const IndexPath = "/index.html"

// Asset is a resolved document
type Asset struct {
	Bytes    []byte
	MimeType string
}

// Resolver maps a request path to an asset
type Resolver interface {
	Resolve(p string) (Asset, bool)
}

// FSResolver resolves assets from a file system
type FSResolver struct {
	fsys fs.FS
}

// NewFSResolver creates a resolver over fsys
func NewFSResolver(fsys fs.FS) *FSResolver {
	return &FSResolver{fsys: fsys}
}

// Resolve reads the file for p. Directories and missing files do not resolve.
func (r *FSResolver) Resolve(p string) (Asset, bool) {
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		return Asset{}, false
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return Asset{}, false
	}

	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return Asset{Bytes: data, MimeType: mimeType}, true
}

// AssetHandler serves resolved assets, falling back to IndexPath so client
// side routes load the app. The UI is embedded by other apps, so framing
// and cross-origin access are open.
func AssetHandler(r Resolver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		asset, ok := r.Resolve(req.URL.Path)
		if !ok {
			asset, ok = r.Resolve(IndexPath)
		}
		if !ok {
			http.NotFound(w, req)
			return
		}

		h := w.Header()
		h.Set("Accept-Ranges", "bytes")
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Content-Type", asset.MimeType)
		h.Set("Content-Security-Policy", "frame-ancestors *")
		h.Set("X-Frame-Options", "ALLOW-FROM *")
		w.WriteHeader(http.StatusOK)

		if req.Method != http.MethodHead {
			w.Write(asset.Bytes)
		}
	})
}
