package http

import (
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// staticFiles maps a path to its memory-mapped contents. Mappings are
// created on first request and live until process exit; an unchanged file is
// served without touching the filesystem again.
var staticFiles = struct {
	mu    sync.RWMutex
	files map[string][]byte
}{files: make(map[string][]byte)}

// mappedFile returns the mmapped contents of path, mapping it on first use.
func mappedFile(path string) ([]byte, error) {
	staticFiles.mu.RLock()
	content, ok := staticFiles.files[path]
	staticFiles.mu.RUnlock()
	if ok {
		return content, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if info.Size() == 0 {
		content = []byte{}
	} else {
		content, err = unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return nil, err
		}
	}

	staticFiles.mu.Lock()
	// Another connection may have raced us here; prefer its mapping.
	if prev, ok := staticFiles.files[path]; ok {
		staticFiles.mu.Unlock()
		if len(content) > 0 {
			unix.Munmap(content)
		}
		return prev, nil
	}
	staticFiles.files[path] = content
	staticFiles.mu.Unlock()
	return content, nil
}

// SendFile responds with the memory-mapped contents of path. A file that
// cannot be opened surfaces as a 404 handler error.
func (c *Context) SendFile(path string) error {
	content, err := mappedFile(path)
	if err != nil {
		return NotFound("File not found.")
	}
	c.SetHeader("Content-Type", contentTypeFor(path))
	c.Respond(content)
	return nil
}

// contentTypeFor returns the MIME type for a file based on its extension.
func contentTypeFor(filename string) string {
	switch filepath.Ext(filename) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
