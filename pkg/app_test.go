package pkg_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/validator"
)

const sampleFeed = `{
  "matches" : [ {
    "cpe23Uri" : "cpe:2.3:a:busybox:busybox:1.29.3:*:*:*:*:*:*:*"
  }, {
    "cpe23Uri" : "cpe:2.3:a:busybox:busybox:1.31.0:*:*:*:*:*:*:*"
  }, {
    "cpe23Uri" : "cpe:2.3:a:xmlsoft:libxml2:2.9.10:*:*:*:*:*:*:*"
  } ]
}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := pkg.NewApp("dev")
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}

	global := []string{"vulner", "--cache-dir", t.TempDir(), "--config", filepath.Join(t.TempDir(), "vulner.toml")}
	err := app.Run(append(global, args...))
	return out.String(), err
}

func feedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nvdcpematch-1.0.json"), []byte(sampleFeed), 0o600))
	return dir
}

func TestCPE(t *testing.T) {
	const batch = `[{"name":"busybox","versions":[{"version":"1.31.0"},{"version":"9999"}]},{"name":"libxml2","version":"2.9.10-r5"},{"name":"nano","version":"6.0"}]`
	want := []string{
		"cpe:2.3:a:busybox:busybox:1.31.0:*:*:*:*:*:*:*",
		"cpe:2.3:a:xmlsoft:libxml2:2.9.10:*:*:*:*:*:*:*",
	}

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "parallel",
		},
		{
			name: "combined",
			args: []string{"--combined"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"cpe", "-d", feedDir(t)}, tt.args...)
			out, err := run(t, append(args, batch)...)
			require.NoError(t, err)

			var got []string
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestCPE_EmptyResult(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		batch   string
		wantLog bool
	}{
		{
			name:  "empty batch",
			batch: `[]`,
		},
		{
			name:  "empty batch combined",
			args:  []string{"--combined"},
			batch: `[]`,
		},
		{
			name:    "no match",
			batch:   `[{"name":"nano","version":"6.0"}]`,
			wantLog: true,
		},
		{
			name:    "no match combined",
			args:    []string{"--combined"},
			batch:   `[{"name":"nano","version":"6.0"}]`,
			wantLog: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			log.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
			t.Cleanup(func() { log.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))) })

			args := append([]string{"cpe", "-d", feedDir(t)}, tt.args...)
			out, err := run(t, append(args, tt.batch)...)
			require.NoError(t, err)
			assert.Equal(t, "[]\n", out)

			if tt.wantLog {
				assert.Contains(t, logs.String(), "level=INFO")
				assert.Contains(t, logs.String(), "possible false negative")
			} else {
				assert.NotContains(t, logs.String(), "possible false negative")
			}
		})
	}
}

func TestCPE_Errors(t *testing.T) {
	t.Run("invalid batch", func(t *testing.T) {
		_, err := run(t, "cpe", "-d", feedDir(t), `[{"name":"busybox"}]`)
		assert.ErrorIs(t, err, validator.ErrValidation)
	})

	t.Run("missing feed", func(t *testing.T) {
		_, err := run(t, "cpe", "-d", t.TempDir(), `[{"name":"busybox","version":"1.31.0"}]`)
		assert.ErrorContains(t, err, "vulner sync")
	})
}

func TestCVE_InvalidBatch(t *testing.T) {
	_, err := run(t, "cve", "-s", `["cpe:/a:busybox:busybox:1.29.3 "]`)
	assert.ErrorIs(t, err, validator.ErrValidation)
}

func TestScan_MetaRepoNeedsRecursive(t *testing.T) {
	_, err := run(t, "scan", "-p", "/var/git/meta-repo")
	assert.ErrorContains(t, err, "use -r")
}
