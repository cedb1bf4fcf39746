// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeLinesRepliesPerCommand(t *testing.T) {
	ex := &fakeExecutor{lines: []string{"ok", "done"}}
	var out bytes.Buffer

	err := ServeLines(context.Background(), "serial", strings.NewReader("STATUS\r\n\n  mode ir \n"), &out, "\r\n", ex)

	require.NoError(t, err)
	assert.Equal(t, []string{"STATUS", "mode ir"}, ex.seen)
	assert.Equal(t, "ok\r\ndone\r\nok\r\ndone\r\n", out.String())
}

func TestServeLinesStopsOnExecutorError(t *testing.T) {
	ex := &fakeExecutor{err: context.Canceled}
	var out bytes.Buffer

	err := ServeLines(context.Background(), "console", strings.NewReader("HELP\nSTATUS\n"), &out, "\n", ex)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"HELP"}, ex.seen)
	assert.Empty(t, out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port gone") }

func TestServeLinesReportsWriteError(t *testing.T) {
	ex := &fakeExecutor{lines: []string{"ok"}}

	err := ServeLines(context.Background(), "serial", strings.NewReader("HELP\n"), failingWriter{}, "\n", ex)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "port gone")
}
