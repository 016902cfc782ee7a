// Package version reports module versions from the build info embedded in
// the binary.
package version

import (
	"runtime/debug"
)

const (
	modulePath       = "github.com/tetratelabs/hostvfs"
	wazeroModulePath = "github.com/tetratelabs/wazero"

	// Default is returned when the version is not recorded, e.g. in tests.
	Default = "dev"
)

// GetHostVFSVersion returns the version of this module, as built into the
// running binary, or Default.
func GetHostVFSVersion() string {
	return moduleVersion(modulePath)
}

// GetWazeroVersion returns the version of wazero the binary was built with,
// or Default.
func GetWazeroVersion() string {
	return moduleVersion(wazeroModulePath)
}

func moduleVersion(path string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return versionOf(info, path)
}

func versionOf(info *debug.BuildInfo, path string) string {
	mod := &info.Main
	if mod.Path != path {
		mod = nil
		for _, dep := range info.Deps {
			if dep.Path == path {
				mod = dep
				break
			}
		}
	}
	if mod == nil {
		return Default
	}
	if mod.Replace != nil {
		mod = mod.Replace
	}
	// "(devel)" is the main module version of a binary built from a checkout.
	if v := mod.Version; v != "" && v != "(devel)" {
		return v
	}
	return Default
}
