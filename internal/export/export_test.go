package export

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matchaops/cafeleads/internal/leads"
	"github.com/matchaops/cafeleads/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var noon = fixedClock{t: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)}

func TestRunExportsOnlyLeadsWithHandles(t *testing.T) {
	rec := NewRecorder()
	trigger := NewTrigger(rec, noon, "", zap.NewNop())

	rows := []leads.Lead{
		{Name: "Has IG", InstagramHandle: "hasig"},
		{Name: "Has TikTok", TikTokHandle: "hastiktok"},
		{Name: "No Handles", Website: "https://example.com"},
	}
	n := trigger.Run(context.Background(), "matcha cafe", leads.SourceGoogleMaps, rows)
	assert.Equal(t, 2, n)

	require.Len(t, rec.Batches, 1)
	for _, batch := range rec.Batches {
		require.Len(t, batch, 2)
		assert.Equal(t, "Has IG", batch[0].Name)
		assert.Equal(t, "Has TikTok", batch[1].Name)
	}
}

func TestRunNothingEligible(t *testing.T) {
	rec := NewRecorder()
	trigger := NewTrigger(rec, noon, "", zap.NewNop())

	n := trigger.Run(context.Background(), "matcha", leads.SourceGoogleMaps, []leads.Lead{
		{Name: "No Handles"},
	})
	assert.Zero(t, n)
	assert.Empty(t, rec.Batches)
}

func TestRunExporterFailureIsSwallowed(t *testing.T) {
	rec := NewRecorder()
	rec.Err = errors.New("sheets unavailable")
	trigger := NewTrigger(rec, noon, "", zap.NewNop())

	n := trigger.Run(context.Background(), "matcha", leads.SourceGoogleMaps, []leads.Lead{
		{Name: "Has IG", InstagramHandle: "hasig"},
	})
	assert.Zero(t, n)
}

func TestRunNilExporterDisabled(t *testing.T) {
	trigger := NewTrigger(nil, noon, "", zap.NewNop())
	n := trigger.Run(context.Background(), "matcha", leads.SourceGoogleMaps, []leads.Lead{
		{Name: "Has IG", InstagramHandle: "hasig"},
	})
	assert.Zero(t, n)
}

func TestDestinationNaming(t *testing.T) {
	trigger := NewTrigger(NewRecorder(), noon, "", zap.NewNop())

	cases := []struct {
		name   string
		query  string
		source leads.Source
		want   string
	}{
		{"query and source", "matcha cafe seattle", leads.SourceGoogleMaps, "matcha cafe seattle - Google Maps (1230)"},
		{"query only", "matcha cafe seattle", "", "matcha cafe seattle (1230)"},
		{"source only", "", leads.SourceTikTok, "Apify Tiktok (1230)"},
		{"neither", "", "", "Export (1230)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, trigger.Destination(tc.query, tc.source))
		})
	}
}

func TestDestinationTruncatesLongQueries(t *testing.T) {
	trigger := NewTrigger(NewRecorder(), noon, "", zap.NewNop())

	long := "matcha and hojicha and genmaicha and sencha everywhere"
	got := trigger.Destination(long, leads.SourceGoogleMaps)
	assert.Contains(t, got, long[:30])
	assert.LessOrEqual(t, len(got), 100)
}

func TestDestinationSanitizesAndPrefixes(t *testing.T) {
	trigger := NewTrigger(NewRecorder(), noon, "Leads", zap.NewNop())

	got := trigger.Destination("matcha! @cafe / 'downtown'", leads.SourceGoogleMaps)
	assert.Equal(t, "Leads matcha cafe downtown - Google Maps (1230)", got)
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "Google Maps", SourceLabel(leads.SourceGoogleMaps))
	assert.Equal(t, "Apify Instagram", SourceLabel(leads.SourceInstagram))
	assert.Equal(t, "Manual", SourceLabel(leads.SourceManual))
}
