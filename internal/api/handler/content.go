package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/gamehost/internal/api/apierr"
	"github.com/mcoot/gamehost/internal/services/versions"
)

// ContentHandler serves the extracted files of game versions
type ContentHandler struct {
	versions *versions.Manager
}

// NewContentHandler creates a new content handler
func NewContentHandler(versions *versions.Manager) *ContentHandler {
	return &ContentHandler{
		versions: versions,
	}
}

// Serve handles GET /games/{slug}/{version}/{path}. The version is a
// number or "latest"; a bare version path serves index.html.
func (h *ContentHandler) Serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rest, hasPath := vars["path"]
	if !hasPath {
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}

	dir, _, err := h.versions.ResolveContent(r.Context(), vars["slug"], vars["version"])
	if err != nil {
		WriteError(w, err)
		return
	}

	name := path.Clean("/" + rest)
	if strings.HasPrefix(path.Base(name), ".") {
		WriteError(w, apierr.NewNotFoundError())
		return
	}
	if strings.HasSuffix(rest, "/") && name != "/" {
		name += "/"
	}

	req := r.Clone(r.Context())
	req.URL.Path = name
	req.URL.RawPath = ""
	http.FileServer(noListing{http.Dir(dir)}).ServeHTTP(w, req)
}

// noListing hides directory listings; directories without index.html 404
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if stat.IsDir() {
		index, err := n.fs.Open(path.Join(name, "index.html"))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		_ = index.Close()
	}
	return f, nil
}
