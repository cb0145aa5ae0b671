// Package logging provides the leveled log sink for nntp2sql.
// Warnings and errors always emit; info lines are gated by the verbose flag.
// The sink defaults to stderr and can be redirected to an append-mode file.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
)

type Logger struct {
	mu      sync.Mutex
	out     *log.Logger
	file    *os.File
	verbose bool
}

// New returns a logger writing to stderr.
func New() *Logger {
	return &Logger{out: log.New(os.Stderr, "", log.LstdFlags)}
}

// OpenFile redirects all output to the given file, appending to it.
// The stderr sink is restored on Close.
func (l *Logger) OpenFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("could not open log file %s: %w", path, err)
	}
	l.mu.Lock()
	l.file = f
	l.out = log.New(f, "", log.LstdFlags)
	l.mu.Unlock()
	return nil
}

func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	l.verbose = v
	l.mu.Unlock()
}

func (l *Logger) Infof(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.verbose {
		return
	}
	l.out.Printf("[INFO] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("[WARN] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("[ERROR] "+format, args...)
}

// Close flushes and closes the log file, if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out = log.New(os.Stderr, "", log.LstdFlags)
	return err
}
