// Package console holds the operator-facing terminal pieces of micscribe:
// the shared stdin line reader, styled status messages, the recording
// spinner, and the startup banner.
package console

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Lines reads newline-terminated operator input from a reader on a single
// goroutine, so that several consumers (the stop watcher, the plot-close
// prompt) can take turns without racing for the underlying reader.
type Lines struct {
	ch  chan string
	err error // set before ch is closed
}

// NewLines starts reading r in the background. The goroutine ends when r
// returns EOF or an error; it is never stopped otherwise, since a blocked
// read on a terminal cannot be interrupted.
func NewLines(r io.Reader) *Lines {
	l := &Lines{ch: make(chan string)}
	go l.scan(r)
	return l
}

func (l *Lines) scan(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		l.ch <- strings.TrimRight(sc.Text(), "\r")
	}
	l.err = sc.Err()
	if l.err == nil {
		l.err = io.EOF
	}
	close(l.ch)
}

// Next returns the next line. It returns ctx.Err() if ctx is done first and
// io.EOF once the input is exhausted.
func (l *Lines) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.ch:
		if !ok {
			return "", l.err
		}
		return line, nil
	}
}
