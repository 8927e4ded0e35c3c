package rules

import (
	"strings"
	"testing"
)

func TestDetectDuplicatesFindsCollision(t *testing.T) {
	resolved := []ResolvedFileRule{
		{
			SourceAbsolutePath: "/save/startup.lua",
			SourceRelativePath: "startup.lua",
			Target:             Target{Type: TargetFile, Path: "startup.lua"},
			Computers:          []string{"1"},
		},
		{
			SourceAbsolutePath: "/save/other/startup.lua",
			SourceRelativePath: "other/startup.lua",
			Target:             Target{Type: TargetFile, Path: "startup.lua"},
			Computers:          []string{"1"},
		},
	}

	issues := DetectDuplicates(resolved)

	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	if issues[0].Severity != SeverityWarning {
		t.Errorf("got severity %v, want warning", issues[0].Severity)
	}
	if len(issues[0].Sources) != 2 {
		t.Fatalf("got %d sources, want both colliding sources: %+v", len(issues[0].Sources), issues[0])
	}
	wantSources := []string{"/save/startup.lua", "/save/other/startup.lua"}
	for _, want := range wantSources {
		found := false
		for _, got := range issues[0].Sources {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected Sources to contain %q, got %+v", want, issues[0].Sources)
		}
		if !strings.Contains(issues[0].Message, want) {
			t.Errorf("expected message to mention %q, got %q", want, issues[0].Message)
		}
	}
	if !strings.Contains(issues[0].Message, "startup.lua") || !strings.Contains(issues[0].Message, "computer 1") {
		t.Errorf("expected message to mention the shared target path and computer, got %q", issues[0].Message)
	}
}

func TestDetectDuplicatesNoCollisionAcrossDifferentComputers(t *testing.T) {
	resolved := []ResolvedFileRule{
		{
			SourceAbsolutePath: "/save/startup.lua",
			SourceRelativePath: "startup.lua",
			Target:             Target{Type: TargetFile, Path: "startup.lua"},
			Computers:          []string{"1"},
		},
		{
			SourceAbsolutePath: "/save/other/startup.lua",
			SourceRelativePath: "other/startup.lua",
			Target:             Target{Type: TargetFile, Path: "startup.lua"},
			Computers:          []string{"2"},
		},
	}

	issues := DetectDuplicates(resolved)

	if len(issues) != 0 {
		t.Fatalf("got %d issues, want 0: %+v", len(issues), issues)
	}
}

func TestDetectDuplicatesDirectoryFlattenCollision(t *testing.T) {
	resolved := []ResolvedFileRule{
		{
			SourceAbsolutePath: "/save/a/util.lua",
			SourceRelativePath: "a/util.lua",
			Target:             Target{Type: TargetDirectory, Path: "lib"},
			Flatten:            true,
			Computers:          []string{"1"},
		},
		{
			SourceAbsolutePath: "/save/b/util.lua",
			SourceRelativePath: "b/util.lua",
			Target:             Target{Type: TargetDirectory, Path: "lib"},
			Flatten:            true,
			Computers:          []string{"1"},
		},
	}

	issues := DetectDuplicates(resolved)

	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
}

func TestDetectDuplicatesPreservedStructureAvoidsFalsePositive(t *testing.T) {
	resolved := []ResolvedFileRule{
		{
			SourceAbsolutePath: "/save/a/util.lua",
			SourceRelativePath: "a/util.lua",
			Target:             Target{Type: TargetDirectory, Path: "lib"},
			Flatten:            false,
			Computers:          []string{"1"},
		},
		{
			SourceAbsolutePath: "/save/b/util.lua",
			SourceRelativePath: "b/util.lua",
			Target:             Target{Type: TargetDirectory, Path: "lib"},
			Flatten:            false,
			Computers:          []string{"1"},
		},
	}

	issues := DetectDuplicates(resolved)

	if len(issues) != 0 {
		t.Fatalf("got %d issues, want 0: %+v", len(issues), issues)
	}
}
