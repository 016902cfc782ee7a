package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_versionOf(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: modulePath, Version: "(devel)"},
		Deps: []*debug.Module{
			{Path: "github.com/spf13/afero", Version: "v1.15.0"},
			{Path: wazeroModulePath, Version: "v1.9.0"},
		},
	}

	tests := []struct {
		name     string
		info     *debug.BuildInfo
		path     string
		expected string
	}{
		{name: "main devel", info: info, path: modulePath, expected: Default},
		{name: "dependency", info: info, path: wazeroModulePath, expected: "v1.9.0"},
		{name: "missing", info: info, path: "github.com/urfave/cli", expected: Default},
		{
			name: "main tagged",
			info: &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "v0.1.0"}},
			path: modulePath, expected: "v0.1.0",
		},
		{
			name: "replaced",
			info: &debug.BuildInfo{Deps: []*debug.Module{{
				Path: wazeroModulePath, Version: "v1.9.0",
				Replace: &debug.Module{Path: "../wazero", Version: ""},
			}}},
			path: wazeroModulePath, expected: Default,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, versionOf(tc.info, tc.path))
		})
	}
}

func TestGetWazeroVersion(t *testing.T) {
	// Test binaries record their dependencies.
	require.NotEmpty(t, GetWazeroVersion())
	require.NotEmpty(t, GetHostVFSVersion())
}
