package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/"

// frontend is the built board client found in the static directory.
type frontend struct {
	root  string
	index string
}

// loadFrontend resolves dir to a servable frontend. It returns nil when dir
// is unset or holds no index.html.
func loadFrontend(dir string, logger *slog.Logger) *frontend {
	if dir == "" {
		logger.Warn("static directory not configured; serving the API only")
		return nil
	}
	index := filepath.Join(dir, "index.html")
	if info, err := os.Stat(index); err != nil || info.IsDir() {
		logger.Warn("no frontend build found; serving the API only", slog.String("path", dir))
		return nil
	}
	return &frontend{root: dir, index: index}
}

// file maps a request path onto a regular file below the frontend root.
func (f *frontend) file(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if clean == "/" {
		return "", false
	}
	name := filepath.Join(f.root, filepath.FromSlash(clean))
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return name, true
}

// mountStatic serves the frontend next to the API. Hashed bundles live
// under /assets. Any other unmatched GET outside /api/ returns a file from
// the build root when one exists and index.html otherwise, so client routes
// such as /lists/:id load the board. Misses under /api/ stay JSON.
func (s *Server) mountStatic() {
	fe := loadFrontend(s.staticDir, s.logger)
	if fe != nil {
		if assets := filepath.Join(fe.root, "assets"); isDir(assets) {
			s.engine.StaticFS("/assets", gin.Dir(assets, false))
		}
		s.engine.GET("/", func(c *gin.Context) { c.File(fe.index) })
	}

	s.engine.NoRoute(func(c *gin.Context) {
		p := c.Request.URL.Path
		method := c.Request.Method
		if fe == nil || strings.HasPrefix(p, apiPrefix) || p == "/api" ||
			(method != http.MethodGet && method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found", "path": p})
			return
		}
		if name, ok := fe.file(p); ok {
			c.File(name)
			return
		}
		c.File(fe.index)
	})
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}
