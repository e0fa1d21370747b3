package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"series-orderer/internal/series"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSort_text(t *testing.T) {
	out, errOut, err := execute(t, "", "sort", filepath.Join("testdata", "example.yaml"))
	require.NoError(t, err)
	assert.Empty(t, errOut)

	newGoldie(t).Assert(t, "sort_text", []byte(out))
}

func TestSort_json(t *testing.T) {
	out, _, err := execute(t, "", "--format", "json", "sort", filepath.Join("testdata", "example.yaml"))
	require.NoError(t, err)

	var ordered []series.Record
	require.NoError(t, json.Unmarshal([]byte(out), &ordered))

	ids := make([]series.ID, len(ordered))
	for i, r := range ordered {
		ids[i] = r.ID
	}
	assert.Equal(t, []series.ID{"P2", "P1", "D2", "D1", "U1"}, ids)
	require.NotNil(t, ordered[2].AcquisitionOrder)
	assert.Equal(t, 1.0, *ordered[2].AcquisitionOrder)
}

func TestSort_stdin_json_input(t *testing.T) {
	in := `[
  {"id": "b", "path": "/b", "role": "primary"},
  {"id": "a", "path": "/a", "role": "primary"},
  {"id": "a", "path": "/elsewhere", "role": "primary"},
  {"id": "x", "path": "/x", "role": "derived", "derivedFromPath": "/a"}
]`
	out, errOut, err := execute(t, in, "sort", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, errOut, `conflict: series "a"`)
	assert.Contains(t, errOut, `rejected: series "x"`)
}

func TestSort_errors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		_, _, err := execute(t, "", "sort", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "read records")
	})

	t.Run("invalid_role", func(t *testing.T) {
		_, _, err := execute(t, "- {id: a, path: /a, role: secondary}\n", "sort", "-")
		assert.ErrorContains(t, err, "invalid series role")
	})

	t.Run("invalid_format", func(t *testing.T) {
		_, _, err := execute(t, "[]", "--format", "xml", "sort", "-")
		assert.ErrorContains(t, err, "invalid format")
	})

	t.Run("missing_argument", func(t *testing.T) {
		_, _, err := execute(t, "", "sort")
		assert.Error(t, err)
	})
}

func TestSort_empty_input(t *testing.T) {
	out, _, err := execute(t, "[]", "--format", "json", "sort", "-")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestHash(t *testing.T) {
	out, _, err := execute(t, "", "hash", "seriesA/path", "", "Aa", "BB")
	require.NoError(t, err)

	newGoldie(t).Assert(t, "hash", []byte(out))
}
