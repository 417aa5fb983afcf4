// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantErrs  float64
	}{
		{"successful count", "count_content", nil, 0},
		{"failed find", "find_content", errors.New("connection refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation))
			RecordDBQuery(tt.operation, 5*time.Millisecond, tt.err)
			after := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation))
			if after-before != tt.wantErrs {
				t.Errorf("error counter delta = %v, want %v", after-before, tt.wantErrs)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues("GET", "/api/v1/content", "200")
	before := testutil.ToFloat64(counter)

	RecordAPIRequest("GET", "/api/v1/content", "200", 12*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", got)
	}
}

func TestRecordRPCRequest(t *testing.T) {
	counter := RPCRequestsTotal.WithLabelValues("content.list", "OK")
	before := testutil.ToFloat64(counter)

	RecordRPCRequest("content.list", "OK", time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("rpc_requests_total delta = %v, want 1", got)
	}
}

func histogramSnapshot(t *testing.T, obs prometheus.Observer) *dto.Histogram {
	t.Helper()
	var m dto.Metric
	if err := obs.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram()
}

func TestRecordRPCRequest_Duration(t *testing.T) {
	obs := RPCRequestDuration.WithLabelValues("auth.login")
	before := histogramSnapshot(t, obs)

	RecordRPCRequest("auth.login", "INVALID_CREDENTIALS", 40*time.Millisecond)

	after := histogramSnapshot(t, obs)
	if got := after.GetSampleCount() - before.GetSampleCount(); got != 1 {
		t.Errorf("sample count delta = %d, want 1", got)
	}
	if got := after.GetSampleSum() - before.GetSampleSum(); got < 0.039 || got > 0.041 {
		t.Errorf("sample sum delta = %v, want 0.04", got)
	}
}

func TestRecordEventPublished(t *testing.T) {
	ok := EventsPublishedTotal.WithLabelValues("content.created", "success")
	failed := EventsPublishedTotal.WithLabelValues("content.created", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordEventPublished("content.created", nil)
	RecordEventPublished("content.created", errors.New("nats down"))

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestMetricsLint(t *testing.T) {
	RecordContentOperation("list", "success")
	ContentListPageSize.Observe(3)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint() error = %v", err)
	}
	for _, p := range problems {
		t.Errorf("metric %s: %s", p.Metric, p.Text)
	}
}
