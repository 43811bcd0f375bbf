package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "stale_answer.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "stale_answer", s.Name)
	assert.Equal(t, DefaultUser, s.User)
	assert.Equal(t, []string{"s1"}, s.SessionIDs)
	require.Len(t, s.Candidates, 3)
	require.Len(t, s.Flow, 4)
	assert.Equal(t, OpAnswer, s.Flow[2].Op)
	assert.Equal(t, "fp#1", s.Flow[2].Fingerprint)
	require.NotNil(t, s.Flow[2].Expect)
	assert.Equal(t, "stale", s.Flow[2].Expect.Reason)
	require.NotNil(t, s.Flow[2].Expect.Version)
	assert.Equal(t, int64(1), *s.Flow[2].Expect.Version)
}

func TestLoadScenario_AllFixturesParse(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		t.Run(filepath.Base(p), func(t *testing.T) {
			_, err := LoadScenario(p)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: typo
description: "typo"
candidates: [{id: A}]
flow:
  - op: start
assertion:
  - type: events
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nflow: [{op: resume}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nflow: [{op: resume}]\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			yaml:    "name: n\ndescription: d\n",
			wantErr: "flow list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nflow: [{op: shuffle}]\n",
			wantErr: `unknown op "shuffle"`,
		},
		{
			name:    "start without candidates",
			yaml:    "name: n\ndescription: d\nflow: [{op: start}]\n",
			wantErr: "start needs candidates",
		},
		{
			name:    "bad choice",
			yaml:    "name: n\ndescription: d\nflow: [{op: answer, choice: both}]\n",
			wantErr: `unknown choice "both"`,
		},
		{
			name:    "prefer without taste",
			yaml:    "name: n\ndescription: d\nflow: [{op: answer, choice: prefer}]\n",
			wantErr: "taste is required",
		},
		{
			name:    "answer_all abstain",
			yaml:    "name: n\ndescription: d\nflow: [{op: answer_all, choice: abstain}]\n",
			wantErr: "answer_all cannot abstain",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nflow: [{op: resume}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "ordering without ids",
			yaml:    "name: n\ndescription: d\nflow: [{op: resume}]\nassertions: [{type: ordering}]\n",
			wantErr: "ids are required for ordering",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
