package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.raw); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRecordComposition(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics() // idempotent

	before := testutil.ToFloat64(compositions.WithLabelValues("404"))
	RecordComposition(404, 3*time.Millisecond)
	after := testutil.ToFloat64(compositions.WithLabelValues("404"))
	if after != before+1 {
		t.Errorf("documents_total{status=404} = %v, want %v", after, before+1)
	}
}

func TestRecordHotUpdate(t *testing.T) {
	before := testutil.ToFloat64(hotUpdates.WithLabelValues("error"))
	RecordHotUpdate(false)
	if got := testutil.ToFloat64(hotUpdates.WithLabelValues("error")); got != before+1 {
		t.Errorf("updates_total{result=error} = %v, want %v", got, before+1)
	}
}
