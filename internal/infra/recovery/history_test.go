package recovery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

func record(tool string, kind domain.ErrorKind, at time.Time) Record {
	return Record{
		Context:  domain.ErrorContext{ToolName: tool, Kind: kind, Severity: domain.SeverityLow, Timestamp: at},
		Decision: domain.RecoveryDecision{State: domain.RecoveryRetrying},
	}
}

func TestHistory_RingBufferKeepsNewest(t *testing.T) {
	h := NewHistory(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		h.Add(record(fmt.Sprintf("t%d", i), domain.ErrorKindTool, now))
	}
	records := h.Records()
	require.Len(t, records, 3)
	require.Equal(t, "t2", records[0].Context.ToolName)
	require.Equal(t, "t4", records[2].Context.ToolName)

	h.Resize(2)
	records = h.Records()
	require.Equal(t, 2, h.Cap())
	require.Equal(t, []string{"t3", "t4"}, []string{records[0].Context.ToolName, records[1].Context.ToolName})
}

func TestHistory_Stats(t *testing.T) {
	h := NewHistory(100)
	now := time.Now()
	for i := 0; i < 12; i++ {
		for j := 0; j <= i; j++ {
			h.Add(record(fmt.Sprintf("tool%02d", i), domain.ErrorKindTimeout, now))
		}
	}
	h.Add(record("old", domain.ErrorKindConnection, now.Add(-48*time.Hour)))

	stats := h.Stats(now)
	require.Equal(t, 79, stats.Total)
	require.Equal(t, 78, stats.Recent24h)
	require.Len(t, stats.TopPatterns, 10)
	require.Equal(t, PatternCount{Pattern: "tool11:timeout", Count: 12}, stats.TopPatterns[0])
	require.Equal(t, 78, stats.ByKind[domain.ErrorKindTimeout])
	require.Equal(t, 79, stats.ByState[domain.RecoveryRetrying])
	require.Equal(t, 79, stats.BySeverity[domain.SeverityLow])
}
