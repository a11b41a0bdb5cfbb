package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	inner := NewTestingAPI()
	tel := NewScopedAPI("client", NewScopedAPI("archive", inner))

	tel.ReportBroken("client.fetch-document", "boom")
	tel.ReportWarning("canonical.xml", 1)
	tel.ReportCount("documents", 3)

	broken := inner.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "archive: client: client.fetch-document", broken[0].ID)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.True(t, inner.HasReport("warning", "canonical.xml"))
	require.False(t, inner.HasReport("broken", "canonical.xml"))
	require.Len(t, inner.Reports(""), 3)
}

func TestInstrumentPerfStatsStopsWithContext(t *testing.T) {
	tel := NewTestingAPI()
	ctx, cancel := context.WithCancel(context.Background())
	InstrumentPerfStats(ctx, tel, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.Empty(t, tel.Reports("broken"))
}
