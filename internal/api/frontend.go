package api

import (
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// Files served from the root of the frontend build.
var rootAssets = []string{"manifest.json", "logo192.png", "logo512.png", "favicon.ico"}

func (h *Handler) FrontendIndex(w http.ResponseWriter, r *http.Request) {
	if !h.serveBuildFile(w, r, h.frontendDir, "index.html") {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Frontend build not found",
			Details: "Run 'npm install' and 'npm run build' inside the waste-predictor folder, then redeploy.",
		})
	}
}

func (h *Handler) FrontendStatic(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if !h.serveBuildFile(w, r, filepath.Join(h.frontendDir, "static"), path) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Static asset not found", "path": path})
	}
}

func (h *Handler) rootAsset(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.serveBuildFile(w, r, h.frontendDir, name) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: name + " not found"})
		}
	}
}

// serveBuildFile serves dir/name and reports false when it is not a regular file.
// Names that leave dir are rejected by fs.ValidPath.
func (h *Handler) serveBuildFile(w http.ResponseWriter, r *http.Request, dir, name string) bool {
	if h.frontendDir == "" || !fs.ValidPath(name) {
		return false
	}
	fsys := os.DirFS(dir)
	info, err := fs.Stat(fsys, name)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	http.ServeFileFS(w, r, fsys, name)
	return true
}
