package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/explog-analyzer/explog/internal/sampler"
)

func noFlags(string) bool { return false }

func flagsSet(names ...string) func(string) bool {
	return func(name string) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}

func TestCollectRequest_Interactive(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		start    string
		end      string
		mode     sampler.Mode
		maxRound *int
		count    int
		preview  bool
		notice   string
	}{
		{
			name:  "all mode, end defaults to start",
			input: "2025-03-01-10-00\n\nall\nn\n",
			start: "2025-03-01-10-00", end: "2025-03-01-10-00",
			mode: sampler.ModeAll, count: 10,
		},
		{
			name:  "mode loops until valid",
			input: "2025-03-01-10-00\n2025-03-01-11-00\nsome\nSAMPLED\n\n\ny\n",
			start: "2025-03-01-10-00", end: "2025-03-01-11-00",
			mode: sampler.ModeSampled, count: 10, preview: true,
			notice: "Invalid input, please enter 'all' or 'sampled'.",
		},
		{
			name:  "ceiling and count",
			input: "2025-03-01-10-00\n\nsampled\n100\n5\nY\n",
			start: "2025-03-01-10-00", end: "2025-03-01-10-00",
			mode: sampler.ModeSampled, maxRound: sampler.Ceiling(100), count: 5, preview: true,
		},
		{
			name:  "invalid ceiling skips count",
			input: "2025-03-01-10-00\n\nsampled\nlots\nn\n",
			start: "2025-03-01-10-00", end: "2025-03-01-10-00",
			mode: sampler.ModeSampled, count: 10,
			notice: "Invalid input, defaults will be used.",
		},
		{
			name:  "invalid count keeps ceiling",
			input: "2025-03-01-10-00\n\nsampled\n40\nfew\n\n",
			start: "2025-03-01-10-00", end: "2025-03-01-10-00",
			mode: sampler.ModeSampled, maxRound: sampler.Ceiling(40), count: 10,
			notice: "Invalid input, defaults will be used.",
		},
		{
			name:  "input ends early",
			input: "2025-03-01-10-00\n\nall",
			start: "2025-03-01-10-00", end: "2025-03-01-10-00",
			mode: sampler.ModeAll, count: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			req, err := collectRequest(newPrompter(strings.NewReader(tt.input), out), runFlags{}, noFlags)
			require.NoError(t, err)

			assert.Equal(t, tt.start, req.Start)
			assert.Equal(t, tt.end, req.End)
			assert.Equal(t, tt.mode, req.Sampler.Mode)
			assert.Equal(t, tt.maxRound, req.Sampler.MaxRound)
			assert.Equal(t, tt.count, req.Sampler.Count)
			assert.Equal(t, tt.preview, req.Preview)
			if tt.notice != "" {
				assert.Contains(t, out.String(), tt.notice)
			}
		})
	}
}

func TestCollectRequest_Flags(t *testing.T) {
	out := &bytes.Buffer{}
	f := runFlags{start: "2025-03-01-10-00", mode: "sampled", maxRound: 50, samples: 3, preview: true}

	req, err := collectRequest(newPrompter(strings.NewReader(""), out),
		f, flagsSet("start", "mode", "max-round", "samples", "preview"))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01-10-00", req.End, "unanswered end prompt reads as blank at end of input")
	assert.Equal(t, sampler.ModeSampled, req.Sampler.Mode)
	assert.Equal(t, sampler.Ceiling(50), req.Sampler.MaxRound)
	assert.Equal(t, 3, req.Sampler.Count)
	assert.True(t, req.Preview)
	assert.NotContains(t, out.String(), "Enter start time")
}

func TestCollectRequest_Errors(t *testing.T) {
	t.Run("invalid mode flag", func(t *testing.T) {
		_, err := collectRequest(newPrompter(strings.NewReader(""), io.Discard),
			runFlags{start: "2025-03-01-10-00", mode: "most"}, flagsSet("start", "mode"))
		assert.ErrorContains(t, err, "mode")
	})

	t.Run("no input for start", func(t *testing.T) {
		_, err := collectRequest(newPrompter(strings.NewReader(""), io.Discard), runFlags{}, noFlags)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("input ends before a valid mode", func(t *testing.T) {
		_, err := collectRequest(newPrompter(strings.NewReader("2025-03-01-10-00\n\nbad\n"), io.Discard), runFlags{}, noFlags)
		assert.ErrorIs(t, err, io.EOF)
	})
}
