package gorm_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	adapter "github.com/stoatbridge/stoatbridge/internal/logger/adapter/gorm"
)

func capture(t *testing.T, fn func()) string {
	t.Helper()

	var buf bytes.Buffer

	old := log.Logger
	log.Logger = zerolog.New(&buf)

	t.Cleanup(func() { log.Logger = old })

	fn()

	return buf.String()
}

func TestTraceReportsErrors(t *testing.T) {
	l := adapter.New()

	out := capture(t, func() {
		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, errors.New("no such table"))
	})

	if !strings.Contains(out, "no such table") {
		t.Errorf("expected error in output, got: %s", out)
	}

	if !strings.Contains(out, "SELECT 1") {
		t.Errorf("expected query in output, got: %s", out)
	}
}

func TestTraceReportsSlowQueries(t *testing.T) {
	l := adapter.New()

	out := capture(t, func() {
		l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
			return "SELECT * FROM transfer_runs", 10
		}, nil)
	})

	if !strings.Contains(out, "slow query") {
		t.Errorf("expected slow query warning, got: %s", out)
	}
}

func TestSilentModeSuppressesOutput(t *testing.T) {
	l := adapter.New().LogMode(gormlogger.Silent)

	out := capture(t, func() {
		l.Error(context.Background(), "boom %s", "arg")
		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, errors.New("boom"))
	})

	if out != "" {
		t.Errorf("expected no output in silent mode, got: %s", out)
	}
}
