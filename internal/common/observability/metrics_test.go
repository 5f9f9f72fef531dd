package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordJobMetrics(t *testing.T) {
	o := New("observability-test")
	require.NotNil(t, o)

	ctx := context.Background()
	o.RecordJobProcessed(ctx, "evaluate-application")
	o.RecordJobDuration(ctx, "evaluate-application", 25*time.Millisecond)
	o.Shutdown()
}

func TestZeroValueIsSafe(t *testing.T) {
	// Exporter construction can fail at startup; the zero value must still
	// accept calls.
	var o Observability
	o.RecordJobProcessed(context.Background(), "record-decision")
	o.RecordJobDuration(context.Background(), "record-decision", time.Millisecond)
	o.Shutdown()
}
