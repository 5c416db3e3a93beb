// Package campid carries camelmm's identity metadata: the fixed record
// spec.md section 6 requires, naming the implementation and exposed as a
// plain package symbol (no CLI, no environment, nothing computed at
// runtime).
package campid

import "github.com/Masterminds/semver/v3"

// Identity names the implementation producing an allocator instance.
type Identity struct {
	Team    string
	Version *semver.Version
	Contact string
}

// Info is the fixed identity record exposed by this build of camelmm.
var Info = Identity{
	Team:    "camelmm",
	Version: semver.MustParse("1.0.0"),
	Contact: "camelmm@localhost",
}

// String renders the identity record for logs and diagnostics.
func (id Identity) String() string {
	return id.Team + " v" + id.Version.String()
}
