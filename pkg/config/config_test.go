package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg/config"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    func(config.Config) config.Config
		wantErr bool
	}{
		{
			name: "missing file",
			want: func(c config.Config) config.Config { return c },
		},
		{
			name: "partial file keeps defaults",
			content: `version = 0

[api_keys]
nvd_api_key = "from-file"
`,
			want: func(c config.Config) config.Config {
				c.APIKeys.NVDAPIKey = "from-file"
				return c
			},
		},
		{
			name: "every field",
			content: `version = 0
scan_results_dir = "/srv/vulner"
workers = 4
alias_file = "/etc/vulner/aliases.yaml"

[api_keys]
nvd_api_key = "from-file"
`,
			want: func(c config.Config) config.Config {
				return config.Config{
					ScanResultsDir: "/srv/vulner",
					APIKeys:        config.APIKeys{NVDAPIKey: "from-file"},
					Workers:        4,
					AliasFile:      "/etc/vulner/aliases.yaml",
				}
			},
		},
		{
			name:    "broken file",
			content: `version = `,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vulner.toml")
			if tt.content != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			}

			got, err := config.Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want(config.Default()), got)
		})
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vulner", "vulner.toml")
	want := config.Default()
	want.APIKeys.NVDAPIKey = "secret"
	want.Workers = 2

	require.NoError(t, config.Save(path, want))
	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestConfig_NVDAPIKey(t *testing.T) {
	c := config.Config{APIKeys: config.APIKeys{NVDAPIKey: "from-file"}}
	assert.Equal(t, "from-env", c.NVDAPIKey("from-env"))
	assert.Equal(t, "from-file", c.NVDAPIKey(""))
	assert.Equal(t, "", config.Config{}.NVDAPIKey(""))
}
