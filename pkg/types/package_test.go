package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vulner/pkg/types"
)

func TestParsePackage(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   types.Package
		wantOK bool
	}{
		{
			name:   "simple",
			raw:    "rust-bin-1.58.1",
			want:   types.NewPackage("rust-bin", "1.58.1"),
			wantOK: true,
		},
		{
			name:   "revision and patch level",
			raw:    "openssh-8.4_p1-r3",
			want:   types.NewPackage("openssh", "8.4_p1-r3"),
			wantOK: true,
		},
		{
			name:   "plus sign in name",
			raw:    "nicotine+-1.4.1-r1",
			want:   types.NewPackage("nicotine+", "1.4.1-r1"),
			wantOK: true,
		},
		{
			name:   "digit inside the name",
			raw:    "lib2to3-1.0",
			want:   types.NewPackage("lib2to3", "1.0"),
			wantOK: true,
		},
		{
			name:   "digit-led segment inside the name",
			raw:    "ncurses5-config-6.1",
			want:   types.NewPackage("ncurses5-config", "6.1"),
			wantOK: true,
		},
		{
			name:   "greedy name takes the rightmost boundary",
			raw:    "foo-1.2-3",
			want:   types.NewPackage("foo-1.2", "3"),
			wantOK: true,
		},
		{
			name: "no version",
			raw:  "virtual",
		},
		{
			name: "hyphen without digit",
			raw:  "python-exec-conf",
		},
		{
			name: "empty name",
			raw:  "-1.0",
		},
		{
			name: "empty",
			raw:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := types.ParsePackage(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackage_RoundTrip(t *testing.T) {
	pkgs := []types.Package{
		types.NewPackage("busybox", "1.29.3"),
		types.NewPackage("libxml2", "2.9.10-r5"),
		types.NewPackage("openssh", "8.4_p1-r3"),
		types.NewPackage("google-chrome", "97.0.4692.71"),
		types.NewPackage("nicotine+", "1.4.1-r1"),
		types.NewPackage("ncurses5-config", "6.1"),
		types.NewPackage("perl-Text-CSV_XS", "1.460.0"),
	}
	for _, pkg := range pkgs {
		t.Run(pkg.String(), func(t *testing.T) {
			got, ok := types.ParsePackage(pkg.String())
			require.True(t, ok)
			assert.Equal(t, pkg, got)
		})
	}
}

func TestPackage_String(t *testing.T) {
	assert.Equal(t, "busybox-1.29.3", types.NewPackage("busybox", "1.29.3").String())
	assert.Equal(t, "busybox-1.31.0", types.NewPackage("busybox", "1.31.0", "9999").String())
	assert.Equal(t, "busybox", types.NewPackage("busybox").String())
}

func TestPackage_Key(t *testing.T) {
	assert.Equal(t, "busybox@1.29.3", types.NewPackage("busybox", "1.29.3").Key())
	assert.Equal(t, "busybox@1.31.0,9999", types.NewPackage("busybox", "1.31.0", "9999").Key())
	assert.Equal(t, "busybox", types.NewPackage("busybox").Key())
	assert.NotEqual(t, types.NewPackage("foo", "1-2").Key(), types.NewPackage("foo-1", "2").Key())
}

func TestPackage_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []types.Package
	}{
		{
			name:  "versions list",
			input: `[{"name":"busybox","versions":[{"version":"1.31.0"},{"version":"9999"}]}]`,
			want:  []types.Package{types.NewPackage("busybox", "1.31.0", "9999")},
		},
		{
			name:  "flat version",
			input: `[{"name":"busybox","version":"1.29.3"}]`,
			want:  []types.Package{types.NewPackage("busybox", "1.29.3")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []types.Package
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
