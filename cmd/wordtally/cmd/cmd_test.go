package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordtally/internal/pipeline"
)

func TestParseJobs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   []string
		want []pipeline.Job
		err  bool
	}{
		{name: "single", in: []string{"stress=fuck you"}, want: []pipeline.Job{{ReportID: "stress", Term: "fuck you"}}},
		{name: "many", in: []string{"a=x", " b = y "}, want: []pipeline.Job{{ReportID: "a", Term: "x"}, {ReportID: "b", Term: "y"}}},
		{name: "term with equals", in: []string{"eq=a=b"}, want: []pipeline.Job{{ReportID: "eq", Term: "a=b"}}},
		{name: "missing term", in: []string{"a="}, err: true},
		{name: "no separator", in: []string{"a"}, err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseJobs(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func writeSettings(t *testing.T, baseURL string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	settings := fmt.Sprintf(`
data_folder_path: %s
guild_id: "7"
request_months_concurrent: 4
request_years_concurrent: 2
search:
  base_url: %s
default_period:
  start: 2018
  end: 2019
logging:
  level: error
  console: false
`, data, baseURL)
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))
	return path, data
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := RootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCompileBulk(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("content") == "" {
			_, _ = w.Write([]byte(`{"total_results": 100}`))
			return
		}
		_, _ = w.Write([]byte(`{"total_results": 4}`))
	}))
	defer srv.Close()
	cfgPath, data := writeSettings(t, srv.URL)

	out, err := execute(t, "--config", cfgPath, "run", "--term", "all", "--report", "everything")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Jan 18,"))
	assert.Equal(t, strings.Repeat("100,", 23)+"100", lines[1])
	// Every month has the same total, so the percentage row is flat zero.
	assert.Equal(t, strings.Repeat("0,", 23)+"0", lines[3])

	for _, y := range []int{2018, 2019} {
		_, err := os.Stat(filepath.Join(data, "everything", fmt.Sprintf("everything-%d-all.csv", y)))
		require.NoError(t, err)
	}

	out, err = execute(t, "--config", cfgPath, "compile", "--term", "all", "--report", "everything", "--from", "2019", "--transform", "normal")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Jan 19,"))

	out, err = execute(t, "--config", cfgPath, "bulk", "--job", "everything=all")
	require.NoError(t, err)
	assert.Contains(t, out, "compiled 1 reports for 2018-2019")

	_, err = execute(t, "--config", cfgPath, "bulk", "--job", "everything=all", "--job", "missing=friend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestRunRequiresTerm(t *testing.T) {
	t.Parallel()
	_, err := execute(t, "--config", "unused.yaml", "run", "--report", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "term")
}

func TestMissingConfig(t *testing.T) {
	t.Parallel()
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "compile", "--term", "a", "--report", "b")
	assert.Error(t, err)
}
