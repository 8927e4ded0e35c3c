package rules

import "testing"

func TestClassifyTargetTrailingSlashIsDirectory(t *testing.T) {
	target := classifyTarget("startup/", 1)
	if target.Type != TargetDirectory {
		t.Fatalf("got %v, want directory", target.Type)
	}
}

func TestClassifyTargetSingleMatchFileLikeIsFile(t *testing.T) {
	target := classifyTarget("startup.lua", 1)
	if target.Type != TargetFile {
		t.Fatalf("got %v, want file", target.Type)
	}
}

func TestClassifyTargetMultipleMatchesAlwaysDirectory(t *testing.T) {
	target := classifyTarget("startup.lua", 3)
	if target.Type != TargetDirectory {
		t.Fatalf("got %v, want directory", target.Type)
	}
}

func TestClassifyTargetNotFileLikeIsDirectory(t *testing.T) {
	target := classifyTarget("lib", 1)
	if target.Type != TargetDirectory {
		t.Fatalf("got %v, want directory", target.Type)
	}
}

func TestResolveFinalPathFileTarget(t *testing.T) {
	target := Target{Type: TargetFile, Path: "startup.lua"}
	got := ResolveFinalPath(target, true, "nested/startup.lua")
	if got != "startup.lua" {
		t.Errorf("got %q", got)
	}
}

func TestResolveFinalPathDirectoryFlatten(t *testing.T) {
	target := Target{Type: TargetDirectory, Path: "lib"}
	got := ResolveFinalPath(target, true, "nested/deep/util.lua")
	if got != "lib/util.lua" {
		t.Errorf("got %q", got)
	}
}

func TestResolveFinalPathDirectoryPreserveStructure(t *testing.T) {
	target := Target{Type: TargetDirectory, Path: "lib"}
	got := ResolveFinalPath(target, false, "nested/deep/util.lua")
	if got != "lib/nested/deep/util.lua" {
		t.Errorf("got %q", got)
	}
}
