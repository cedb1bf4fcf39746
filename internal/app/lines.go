// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
)

// Executor runs one shell command line.
type Executor interface {
	Execute(ctx context.Context, line string) ([]string, error)
}

// lockedWriter serializes writes from the reply path and the reporters.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// ServeLines reads one command per line from r and writes each reply line
// to w terminated by eol. It returns when r is exhausted or ctx ends.
func ServeLines(ctx context.Context, name string, r io.Reader, w io.Writer, eol string, ex Executor) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		log.Printf("%s: command %q", name, line)

		lines, err := ex.Execute(ctx, line)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if _, err := fmt.Fprint(w, l, eol); err != nil {
				return fmt.Errorf("%s: write reply: %w", name, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: read: %w", name, err)
	}
	return nil
}

// OpenSerial opens the command port at 8N1.
func OpenSerial(portName string, baudRate int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	log.Printf("serial: port opened on %s at %d baud", portName, baudRate)
	return port, nil
}
