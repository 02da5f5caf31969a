// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package internal holds the process-wide log of the tonematch command line tool.
package internal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Process-wide log. Writes to stdout, and optionally tees into a file.
// Does not add prefixes, or force newlines.
type teeLog struct {
	mu     sync.Mutex
	file   *os.File
	buffer *bufio.Writer
}

var log teeLog

// Writes p to stdout, and to the log file if one is open
func (l *teeLog) Write(p []byte) (n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err = os.Stdout.Write(p)
	if err != nil || l.buffer == nil {
		return n, err
	}
	return l.buffer.Write(p)
}

func (l *teeLog) close() error {
	if l.buffer == nil {
		return nil
	}
	if err := l.buffer.Flush(); err != nil {
		return err
	}
	err := l.file.Close()
	l.file, l.buffer = nil, nil
	return err
}

// Returns the process-wide log writer
func LogWriter() io.Writer { return &log }

// Tees all further log output into the given file, closing any previous log file
func LogAlsoToFile(fileName string) error {
	log.mu.Lock()
	defer log.mu.Unlock()
	if err := log.close(); err != nil {
		return err
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	log.file, log.buffer = f, bufio.NewWriter(f)
	return nil
}

func LogPrint(args ...interface{}) (n int, err error) {
	return fmt.Fprint(&log, args...)
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return fmt.Fprintln(&log, args...)
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(&log, format, args...)
}

// Logs the arguments, closes the log file and exits with status 1
func LogFatal(args ...interface{}) {
	fmt.Fprintln(&log, args...)
	LogClose()
	os.Exit(1)
}

// Logs the formatted message, closes the log file and exits with status 1
func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(&log, format, args...)
	LogClose()
	os.Exit(1)
}

// Flushes buffered log output to disk
func LogSync() error {
	log.mu.Lock()
	defer log.mu.Unlock()
	if log.buffer == nil {
		return nil
	}
	if err := log.buffer.Flush(); err != nil {
		return err
	}
	return log.file.Sync()
}

// Flushes and closes the log file, if any. Output continues on stdout
func LogClose() error {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.close()
}
