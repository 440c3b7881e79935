// Package preview streams the loaded source file to the frontend's
// player with byte-range support, so scrubbing only pulls the slices it
// needs.
package preview

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange = errors.New("malformed range header")
	ErrUnsatisfiable  = errors.New("range not satisfiable")
)

// byteRange is a closed interval of file offsets.
type byteRange struct {
	start int64
	end   int64
}

func (b byteRange) length() int64 { return b.end - b.start + 1 }

// parseRange interprets a Range header against a file of the given
// size. A nil range with nil error means the whole file was requested.
// Only the first range of a multi-range request is honored.
func parseRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}
	if first, _, multi := strings.Cut(spec, ","); multi {
		spec = strings.TrimSpace(first)
	}

	startPart, endPart, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrMalformedRange
	}

	// Suffix form: the last N bytes.
	if startPart == "" {
		n, err := strconv.ParseInt(endPart, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		return &byteRange{start: max(size-n, 0), end: size - 1}, nil
	}

	start, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrMalformedRange
	}
	end := size - 1
	if endPart != "" {
		if end, err = strconv.ParseInt(endPart, 10, 64); err != nil {
			return nil, ErrMalformedRange
		}
	}

	if start > end || start >= size {
		return nil, ErrUnsatisfiable
	}
	return &byteRange{start: start, end: min(end, size-1)}, nil
}

// Server serves whatever source the resolver currently points at.
type Server struct {
	source func() string
	logger *slog.Logger
}

// NewServer wires a preview server over a source resolver; an empty
// resolved path means no video is loaded.
func NewServer(source func() string, logger *slog.Logger) *Server {
	return &Server{source: source, logger: logger}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := s.source()
	if path == "" {
		http.Error(w, "no video loaded", http.StatusNotFound)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "source file missing", http.StatusNotFound)
			return
		}
		s.logger.Warn("cannot open source for preview", "error", err)
		http.Error(w, "cannot open source", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.logger.Warn("cannot stat source for preview", "error", err)
		http.Error(w, "cannot stat source", http.StatusInternalServerError)
		return
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rng, err := parseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	case errors.Is(err, ErrMalformedRange):
		// Malformed ranges degrade to a full-body response.
		rng = nil
	}

	if rng == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(rng.length(), 10))
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.Copy(w, io.NewSectionReader(file, rng.start, rng.length()))
	}
}
