/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Logf(format string, v ...any)
}

type subsystemLogger struct {
	subsystem string
	logger    *ServerLogger
}

func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.subsystem, format, v...)
}

type nopLogger struct{}

func (nopLogger) Logf(string, ...any) {}

// Nop returns a Logger that drops everything.
func Nop() Logger { return nopLogger{} }

// Options describes where and how log records are written.
// An empty File means stderr.
type Options struct {
	Enabled    bool
	Format     string // text|json
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type logEntry struct {
	subsystem string
	formatted string
}

// ServerLogger fans the subsystem loggers into a single slog handler.
// Records are queued on an inbox and written by Run, so that Logf never waits on the disk.
type ServerLogger struct {
	out    *slog.Logger
	closer io.Closer

	lock       sync.RWMutex
	subsystems map[string]*slog.Logger
	enabled    bool

	inbox chan logEntry
}

func NewServerLogger(opts Options) *ServerLogger {
	return newServerLogger(opts, nil)
}

// NewWriterLogger is NewServerLogger writing to w instead of stderr or a file.
func NewWriterLogger(w io.Writer, opts Options) *ServerLogger {
	return newServerLogger(opts, w)
}

func newServerLogger(opts Options, w io.Writer) *ServerLogger {
	var closer io.Closer
	if w == nil {
		w = os.Stderr
		if strings.TrimSpace(opts.File) != "" {
			lj := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAgeDays,
				Compress:   opts.Compress,
			}
			w, closer = lj, lj
		}
	}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(w, nil)
	} else {
		h = slog.NewTextHandler(w, nil)
	}

	return &ServerLogger{
		out:        slog.New(h),
		closer:     closer,
		subsystems: make(map[string]*slog.Logger),
		enabled:    opts.Enabled,
		inbox:      make(chan logEntry, 600),
	}
}

// RegisterSubsystem returns the Logger tagging every record with subsystem.
func (n *ServerLogger) RegisterSubsystem(subsystem string) Logger {
	n.lock.Lock()
	defer n.lock.Unlock()

	if _, ok := n.subsystems[subsystem]; !ok {
		n.subsystems[subsystem] = n.out.With("subsystem", subsystem)
	}
	return &subsystemLogger{subsystem, n}
}

func (n *ServerLogger) GetSubsystemLogger(subsystem string) (Logger, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	if _, ok := n.subsystems[subsystem]; !ok {
		return nil, fmt.Errorf("The subsystem %q was not registered", subsystem)
	}
	return &subsystemLogger{subsystem, n}, nil
}

func (n *ServerLogger) EnableLogging() {
	n.lock.Lock()
	n.enabled = true
	n.lock.Unlock()
}

func (n *ServerLogger) DisableLogging() {
	n.lock.Lock()
	n.enabled = false
	n.lock.Unlock()
}

// Logf queues a record for subsystem. When the inbox is full the record is written inline.
func (n *ServerLogger) Logf(subsystem, format string, v ...any) {
	entry := logEntry{subsystem, fmt.Sprintf(format, v...)}
	select {
	case n.inbox <- entry:
	default:
		n.actualWrite(entry)
	}
}

// Run writes queued records until ctx is cancelled, then flushes what is left.
func (n *ServerLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			n.Flush()
			return
		case entry := <-n.inbox:
			n.actualWrite(entry)
		}
	}
}

// Flush writes every queued record without waiting for new ones.
func (n *ServerLogger) Flush() {
	for {
		select {
		case entry := <-n.inbox:
			n.actualWrite(entry)
		default:
			return
		}
	}
}

func (n *ServerLogger) actualWrite(entry logEntry) {
	n.lock.RLock()
	enabled := n.enabled
	logger, ok := n.subsystems[entry.subsystem]
	n.lock.RUnlock()

	if !enabled {
		return
	}
	if !ok {
		logger = n.out.With("subsystem", entry.subsystem)
	}
	logger.Info(entry.formatted)
}

// Close flushes the inbox and releases the log file, if any.
func (n *ServerLogger) Close() error {
	n.Flush()
	if n.closer != nil {
		return n.closer.Close()
	}
	return nil
}
