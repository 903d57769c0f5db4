// Copyright 2026 the xgl authors
// SPDX-License-Identifier: Apache-2.0 OR MIT

// Package xgl implements the pipeline-compilation internals of a Vulkan
// driver: a shader entry-point layout planner and hardware stage merger
// (package llpc), and a render-pass execution-plan builder (package
// renderpass).
package xgl

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by all packages in this module. Passing nil
// restores the default silent logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	logger.Store(l)
}

// Logger returns the current module-wide logger.
func Logger() *slog.Logger {
	return logger.Load()
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
