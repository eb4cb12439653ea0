// Copyright 2025 Ekjot Singh
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logutil wires the process-wide structured logger. It exists so
// every long-lived goroutine in the server (worker pools, BackendSync
// tasks, Slave tasks, the compactor) logs through one configured sink
// instead of ad-hoc fmt.Println calls.
package logutil

import (
	"context"

	zaplog "github.com/pingcap/log"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// EmptyFileLogConfig is the zero value used when file logging is disabled.
var EmptyFileLogConfig = zaplog.FileLogConfig{}

// DefaultLogFormat is used when the config file does not set one.
const DefaultLogFormat = "text"

type ctxLogKeyType struct{}

var ctxLogKey = ctxLogKeyType{}

// LogConfig wraps the subset of zaplog's config this server exposes
// through its own config file.
type LogConfig struct {
	Level  string
	Format string
	File   zaplog.FileLogConfig
}

// NewLogConfig builds a LogConfig from primitive values, mirroring the
// constructor shape the teacher's logutil package used.
func NewLogConfig(level, format, filename string, file zaplog.FileLogConfig, disableTimestamp bool) *LogConfig {
	return &LogConfig{Level: level, Format: format, File: file}
}

// InitLogger installs the process-wide zap logger and bridges logrus
// records (used by a couple of vendored helpers) into the same sink.
func InitLogger(cfg *LogConfig) error {
	if cfg == nil {
		cfg = &LogConfig{Level: "info", Format: DefaultLogFormat}
	}
	conf := &zaplog.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   cfg.File,
	}
	logger, props, err := zaplog.InitLogger(conf)
	if err != nil {
		return err
	}
	zaplog.ReplaceGlobals(logger, props)
	logrus.SetLevel(levelFor(cfg.Level))
	return nil
}

func levelFor(level string) logrus.Level {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lv
}

// WithKeyValue attaches a single structured field to ctx for later log
// calls made through L(ctx) — the same pattern ddl's worker uses to tag
// every log line it emits with its worker id.
func WithKeyValue(ctx context.Context, key, value string) context.Context {
	fields, _ := ctx.Value(ctxLogKey).([]zap.Field)
	next := make([]zap.Field, len(fields), len(fields)+1)
	copy(next, fields)
	next = append(next, zap.String(key, value))
	return context.WithValue(ctx, ctxLogKey, next)
}

// L returns a logger carrying whatever fields WithKeyValue attached to ctx.
func L(ctx context.Context) *zap.Logger {
	fields, _ := ctx.Value(ctxLogKey).([]zap.Field)
	if len(fields) == 0 {
		return zaplog.L()
	}
	return zaplog.L().With(fields...)
}

// BgLogger returns the background (context-free) logger.
func BgLogger() *zap.Logger {
	return zaplog.L()
}
