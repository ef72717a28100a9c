// Package logs streams the log of a query, live or finished, as plain text.
package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ringside-dev/ringside/internal/log"
	"github.com/ringside-dev/ringside/internal/model"
	"github.com/ringside-dev/ringside/internal/storage"
)

// ServiceConfig is the configuration for the logs service.
type ServiceConfig struct {
	History storage.Repository
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.History == nil {
		return fmt.Errorf("history repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Logs"})

	return nil
}

// Service streams query logs.
type Service struct {
	history storage.Repository
	logger  log.Logger
}

// NewService creates a new logs service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		history: cfg.History,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the logs request parameters.
type Request struct {
	QueryID string
}

// Response carries the log stream. The caller owns closing it.
type Response struct {
	Log io.ReadCloser
}

// Run opens the log of a query. The log path comes from the history row, so
// running and finished queries read the same way: a running query answers
// whatever has been written so far.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	rec, err := s.history.GetQuery(ctx, req.QueryID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("query %s: %w", req.QueryID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not read query history: %w", err)
	}

	f, err := os.Open(rec.LogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("query %s has no log: %w", req.QueryID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not open query log: %w", err)
	}

	return &Response{Log: newLineFormatter(f)}, nil
}

// maxLogLine bounds a single log line. Compiler output can get long.
const maxLogLine = 1024 * 1024

// lineFormatter re-renders a structured query log as plain text, one line at
// a time. Lines that are JSON log records come out as "<time> - <message>",
// anything else passes through verbatim.
type lineFormatter struct {
	src     io.ReadCloser
	scanner *bufio.Scanner
	buf     []byte
}

func newLineFormatter(src io.ReadCloser) *lineFormatter {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	return &lineFormatter{src: src, scanner: scanner}
}

func (f *lineFormatter) Read(p []byte) (int, error) {
	for len(f.buf) == 0 {
		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		f.buf = appendFormattedLine(f.buf, f.scanner.Bytes())
	}

	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func (f *lineFormatter) Close() error {
	return f.src.Close()
}

func appendFormattedLine(dst, line []byte) []byte {
	var rec struct {
		Time string `json:"time"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(line, &rec); err == nil && rec.Time != "" && rec.Msg != "" {
		dst = append(dst, rec.Time...)
		dst = append(dst, " - "...)
		dst = append(dst, rec.Msg...)
		return append(dst, '\n')
	}

	dst = append(dst, line...)
	return append(dst, '\n')
}
