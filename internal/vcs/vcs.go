// Package vcs reports the build version of the converter.
package vcs

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const (
	develVersion   = "(devel)"
	shortRevision  = 12
	unknownVersion = "dev"
)

// Info describes the build of the running binary
type Info struct {
	Version   string
	Revision  string
	Time      time.Time
	Modified  bool
	GoVersion string
}

// Get reads version control details from the embedded build info
func Get() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: unknownVersion}
	}
	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   unknownVersion,
		GoVersion: bi.GoVersion,
	}
	if v := bi.Main.Version; v != "" && v != develVersion {
		info.Version = v
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				info.Time = t
			}
		}
	}
	return info
}

// String renders the version as used by --version, e.g. "v1.2.0 (3f2a9c1d04be)"
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)

	if i.Revision == "" {
		return b.String()
	}

	rev := i.Revision
	if len(rev) > shortRevision {
		rev = rev[:shortRevision]
	}
	if i.Modified {
		rev += "-dirty"
	}
	fmt.Fprintf(&b, " (%s", rev)
	if !i.Time.IsZero() {
		fmt.Fprintf(&b, ", %s", i.Time.UTC().Format("2006-01-02"))
	}
	b.WriteString(")")
	return b.String()
}
