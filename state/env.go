// Package state defines shared program state threaded through a context.
package state

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mr-martian/transfuse/config"
)

type envKey struct{}

// LocalEnv keeps everything a single invocation of the program needs in one
// place, reachable from any function that carries the context it was
// constructed into.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// Debug enables extra project-directory snapshots and a debug report bundle.
	Debug bool

	start         time.Time
	restoreStdLog func()
}

// EnvFromContext retrieves the LocalEnv installed by ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

// ContextWithEnv returns a context carrying a freshly constructed LocalEnv.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{start: time.Now()})
}

// Uptime reports how long this invocation has been running.
func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// RedirectStdLog sends anything written through the standard library's log
// package into the structured logger, so a stray log.Print from a
// dependency still ends up wherever the rest of the program's logs go.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

// RestoreStdLog undoes RedirectStdLog and flushes the logger.
func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
