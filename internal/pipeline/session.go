package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"toolcost/internal"
	"toolcost/internal/metrics"
	"toolcost/internal/util"
)

const DefaultMaxFiles = 5

// FileReadError names the quotation file that could not be read.
type FileReadError struct {
	Filename string
	Err      error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file: %s: %v", e.Filename, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

type Upload struct {
	Name     string
	Size     int64
	MIMEType string
	Source   internal.ItemSource
	Open     func() (io.ReadCloser, error)
}

// BytesUpload wraps an in-memory file.
func BytesUpload(name, mimeType string, blob []byte) Upload {
	return Upload{
		Name:     name,
		Size:     int64(len(blob)),
		MIMEType: mimeType,
		Source:   internal.SourceUpload,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(blob)), nil
		},
	}
}

// FileUpload wraps a file on disk; it is opened only when compared.
func FileUpload(path, name string, size int64) Upload {
	return Upload{
		Name:   name,
		Size:   size,
		Source: internal.SourceUpload,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

func IsCSVUpload(name, mimeType string) bool {
	return mimeType == "text/csv" || strings.HasSuffix(strings.ToLower(name), ".csv")
}

// Session is one comparison workspace: the files picked so far and the
// documents parsed by the last successful Compare.
type Session struct {
	maxFiles  int
	uploads   []Upload
	documents []internal.Document
	origin    string
	logger    *zap.Logger
}

func NewSession(maxFiles int, origin string, logger *zap.Logger) *Session {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{maxFiles: maxFiles, origin: origin, logger: logger}
}

// Add accepts CSV files up to the cap. Duplicate names and files beyond the
// cap are ignored without error.
func (s *Session) Add(u Upload) bool {
	if !IsCSVUpload(u.Name, u.MIMEType) || len(s.uploads) >= s.maxFiles {
		return false
	}
	for _, existing := range s.uploads {
		if existing.Name == u.Name {
			return false
		}
	}
	s.uploads = append(s.uploads, u)
	s.logger.Debug("file added",
		zap.String("origin", s.origin),
		zap.String("filename", u.Name),
		zap.String("size", util.FormatFileSize(u.Size)))
	return true
}

func (s *Session) Remove(index int) {
	if index < 0 || index >= len(s.uploads) {
		return
	}
	s.uploads = append(s.uploads[:index], s.uploads[index+1:]...)
}

func (s *Session) Clear() {
	s.uploads = nil
	s.documents = nil
}

func (s *Session) Uploads() []Upload {
	return append([]Upload(nil), s.uploads...)
}

func (s *Session) Documents() []internal.Document {
	return append([]internal.Document(nil), s.documents...)
}

func (s *Session) CanCompare() bool {
	return len(s.uploads) >= 2
}

// Compare reads and parses every file in order, then merges them. The first
// unreadable file aborts the run and the previous documents are kept.
func (s *Session) Compare() (internal.ComparisonView, error) {
	if !s.CanCompare() {
		metrics.ComparisonsTotal.WithLabelValues(s.origin, "rejected").Inc()
		return internal.ComparisonView{}, ErrTooFewFiles
	}

	start := time.Now()
	defer func() {
		metrics.ComparisonDuration.WithLabelValues(s.origin).Observe(time.Since(start).Seconds())
	}()

	docs := make([]internal.Document, 0, len(s.uploads))
	for i, u := range s.uploads {
		s.logger.Debug("processing file",
			zap.Int("index", i+1),
			zap.Int("total", len(s.uploads)),
			zap.String("file", u.Name))

		text, err := readUpload(u)
		if err != nil {
			metrics.ComparisonsTotal.WithLabelValues(s.origin, "failed").Inc()
			s.logger.Warn("comparison aborted", zap.String("file", u.Name), zap.Error(err))
			return internal.ComparisonView{}, &FileReadError{Filename: u.Name, Err: err}
		}

		doc := ParseDocument(u.Name, text)
		observeDocument(s.logger, doc, u.Source)
		docs = append(docs, doc)
	}

	view, err := BuildView(docs)
	if err != nil {
		metrics.ComparisonsTotal.WithLabelValues(s.origin, "failed").Inc()
		return internal.ComparisonView{}, err
	}

	s.documents = docs
	metrics.ComparisonsTotal.WithLabelValues(s.origin, "ok").Inc()
	s.logger.Info("comparison complete",
		zap.Int("files", len(docs)),
		zap.Int("modules", len(view.Modules)))
	return view, nil
}

func readUpload(u Upload) (string, error) {
	if u.Open == nil {
		return "", fmt.Errorf("no reader")
	}
	rc, err := u.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	blob, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return DecodeText(blob), nil
}

func observeDocument(logger *zap.Logger, doc internal.Document, source internal.ItemSource) {
	if source == "" {
		source = internal.SourceUpload
	}
	metrics.DocumentsParsed.WithLabelValues(string(source)).Inc()
	if doc.OrphanLines > 0 {
		metrics.OrphanLinesDropped.Add(float64(doc.OrphanLines))
		logger.Warn("lines before first module header dropped",
			zap.String("file", doc.Filename),
			zap.Int("lines", doc.OrphanLines))
	}
}
