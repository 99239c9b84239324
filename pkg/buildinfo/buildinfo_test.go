package buildinfo

import (
	"runtime"
	"testing"
)

func TestGet_ReturnsCorrectDefaults(t *testing.T) {
	info := Get("coachsync")

	if info.ServiceName != "coachsync" {
		t.Errorf("expected ServiceName='coachsync', got %q", info.ServiceName)
	}
	if info.Version != "dev" {
		t.Errorf("expected Version='dev', got %q", info.Version)
	}
	if info.Commit != "unknown" {
		t.Errorf("expected Commit='unknown', got %q", info.Commit)
	}
	if info.BuildTime != "unknown" {
		t.Errorf("expected BuildTime='unknown', got %q", info.BuildTime)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected GoVersion=%q, got %q", runtime.Version(), info.GoVersion)
	}
}

func TestString_DefaultFormat(t *testing.T) {
	result := String()
	expected := "dev (unknown, unknown)"

	if result != expected {
		t.Errorf("expected String()=%q, got %q", expected, result)
	}
}

func TestString_CustomValues(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	origBuildTime := BuildTime
	defer func() {
		Version = origVersion
		Commit = origCommit
		BuildTime = origBuildTime
	}()

	Version = "v0.3.0"
	Commit = "b806fe7"
	BuildTime = "2026-08-01T10:30:00Z"

	result := String()
	expected := "v0.3.0 (b806fe7, 2026-08-01T10:30:00Z)"
	if result != expected {
		t.Errorf("expected String()=%q, got %q", expected, result)
	}
}

func TestUserAgent(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	defer func() {
		Version = origVersion
		Commit = origCommit
	}()

	Version = "v0.3.0"
	Commit = "b806fe7"

	result := UserAgent("coachsync")
	expected := "coachsync/v0.3.0 (b806fe7)"
	if result != expected {
		t.Errorf("expected UserAgent()=%q, got %q", expected, result)
	}
}
