package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version, Commit, BuildTime = "1.2.3", "abc1234", "2024-01-15T12:30:00Z"

	want := "chatwire 1.2.3 (abc1234) built 2024-01-15T12:30:00Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	info := Get()
	if info.Version != "1.2.3" || info.Commit != "abc1234" || info.BuildTime != "2024-01-15T12:30:00Z" {
		t.Errorf("Get() = %+v", info)
	}
}

func TestDefaults(t *testing.T) {
	if Version != "dev" {
		t.Errorf("Version = %q, want dev when not set via ldflags", Version)
	}
}
