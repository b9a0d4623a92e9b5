package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions(sections ...Section) Options {
	opts := DefaultOptions()
	opts.Paths = 1000
	opts.BenchmarkPaths = 1000
	opts.OOSPaths = 1000
	opts.Trials = 2
	opts.PathCounts = []int{500, 1000}
	opts.Sections = sections
	return opts
}

func TestParseSections(t *testing.T) {
	all, err := ParseSections("")
	require.NoError(t, err)
	assert.Equal(t, AllSections, all)

	some, err := ParseSections("put, OOS")
	require.NoError(t, err)
	assert.Equal(t, []Section{SectionPut, SectionOOS}, some)

	_, err = ParseSections("put,greeks")
	assert.Error(t, err)
}

func TestWriteSelectedSections(t *testing.T) {
	var buf bytes.Buffer
	err := NewReporter(smallOptions(SectionCall, SectionPaths, SectionOOS)).Write(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[4] American Call")
	assert.Contains(t, out, "[7] Convergence vs. Path Count N")
	assert.Contains(t, out, "SE * sqrt(N)")
	assert.Contains(t, out, "[8] Out-of-Sample Stability Test")
	assert.NotContains(t, out, "[1] American Put")
	assert.Equal(t, 3, strings.Count(out, "AmericanCall"))
}

func TestBenchmarkTableHasEveryCase(t *testing.T) {
	var buf bytes.Buffer
	err := NewReporter(smallOptions(SectionBenchmark)).Write(context.Background(), &buf)
	require.NoError(t, err)

	out := buf.String()
	for _, ref := range []string{"4.478", "8.508", "2.314", "5.647"} {
		assert.Contains(t, out, ref)
	}
	assert.Len(t, BenchmarkCases, 20)
}

func TestWriteStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewReporter(smallOptions(SectionPut)).Write(ctx, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
