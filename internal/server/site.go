package server

import (
	"bytes"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// reloadScript reconnects after server restarts and reloads the page when a
// new worker version is announced.
const reloadScript = `(function () {
  var scheme = location.protocol === 'https:' ? 'wss:' : 'ws:';
  function connect() {
    var socket = new WebSocket(scheme + '//' + location.host + '` + ReloadPath + `');
    socket.onmessage = function (event) {
      var message = JSON.parse(event.data);
      if (message.type === 'reload') {
        console.log('sitekit: reloading for', message.version);
        location.reload();
      }
    };
    socket.onclose = function () {
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
`

var reloadTag = []byte(`<script src="` + ReloadScriptPath + `"></script>`)

func (s *PreviewServer) handleReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "reload.js", time.Time{}, strings.NewReader(reloadScript))
}

// handleSite serves the built site. The worker script and web app manifest
// get the headers browsers expect for them; unknown paths get the site's
// 404.html when it has one.
func (s *PreviewServer) handleSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upath := path.Clean("/" + r.URL.Path)
	file := filepath.Join(s.config.Site.Dir, filepath.FromSlash(upath))

	info, err := os.Stat(file)
	if err != nil {
		s.serveNotFound(w, r)
		return
	}

	switch {
	case upath == s.config.WorkerURL():
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Service-Worker-Allowed", "/")
	case path.Base(upath) == "manifest.json":
		w.Header().Set("Content-Type", "application/manifest+json")
	}

	if s.liveReload {
		page := file
		if info.IsDir() && strings.HasSuffix(r.URL.Path, "/") {
			page = filepath.Join(file, "index.html")
		}
		if strings.EqualFold(filepath.Ext(page), ".html") && s.serveHTML(w, r, page, http.StatusOK) {
			return
		}
	}

	s.files.ServeHTTP(w, r)
}

func (s *PreviewServer) serveNotFound(w http.ResponseWriter, r *http.Request) {
	page := filepath.Join(s.config.Site.Dir, "404.html")
	if s.serveHTML(w, r, page, http.StatusNotFound) {
		return
	}
	http.NotFound(w, r)
}

// serveHTML writes an HTML file with the reload client injected when live
// reload is enabled. It reports false when the file cannot be read.
func (s *PreviewServer) serveHTML(w http.ResponseWriter, r *http.Request, file string, status int) bool {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return false
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return false
	}

	if s.liveReload {
		content = injectReloadScript(content)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == http.StatusOK {
		http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(content))
		return true
	}

	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(content)
	}
	return true
}

// injectReloadScript inserts the reload client before the last </body>, or
// appends it when the page has none.
func injectReloadScript(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, page...), reloadTag...)
	}

	out := make([]byte, 0, len(page)+len(reloadTag))
	out = append(out, page[:idx]...)
	out = append(out, reloadTag...)
	return append(out, page[idx:]...)
}
