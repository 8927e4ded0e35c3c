package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccsync/ccsync/pkg/controller"
	"github.com/ccsync/ccsync/pkg/executor"
	"github.com/ccsync/ccsync/pkg/planner"
	"github.com/ccsync/ccsync/pkg/rules"
	"github.com/ccsync/ccsync/pkg/ui"
)

type fakeKeyHandler struct {
	keys []controller.Key
	i    int
}

func (k *fakeKeyHandler) Next() controller.Key {
	if k.i >= len(k.keys) {
		return controller.KeyStop
	}
	key := k.keys[k.i]
	k.i++
	return key
}

func (k *fakeKeyHandler) Stop() {}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newValidSave(t *testing.T) string {
	t.Helper()
	saveDir := t.TempDir()
	mustWriteFile(t, filepath.Join(saveDir, "level.dat"), "x")
	mustWriteFile(t, filepath.Join(saveDir, "session.lock"), "x")
	if err := os.MkdirAll(filepath.Join(saveDir, "region"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(saveDir, "computercraft", "computer", "1"), 0o755); err != nil {
		t.Fatal(err)
	}
	return saveDir
}

func TestInitManualModeRejectsNonIdle(t *testing.T) {
	p := planner.New(planner.Config{SourceRoot: t.TempDir(), MinecraftSavePath: t.TempDir()}, nil, time.Minute)
	e := New(p, ui.Noop{}, nil)
	e.setState(StateRunning)

	_, err := e.InitManualMode(&controller.Manual{})
	if err == nil {
		t.Fatal("expected error initializing mode from a non-IDLE state")
	}
}

func TestManualModeLifecycleReachesStopped(t *testing.T) {
	sourceRoot := t.TempDir()
	mustWriteFile(t, filepath.Join(sourceRoot, "program.lua"), "x")
	saveDir := newValidSave(t)

	p := planner.New(planner.Config{
		SourceRoot:        filepath.ToSlash(sourceRoot),
		MinecraftSavePath: saveDir,
		Rules: []rules.SyncRule{
			{Source: "program.lua", Target: "program.lua", Computers: []string{"1"}},
		},
	}, nil, time.Minute)

	e := New(p, ui.Noop{}, nil)

	m := &controller.Manual{
		Planner:    p,
		Executor:   executor.CopyToComputer,
		UI:         ui.Noop{},
		KeyHandler: &fakeKeyHandler{keys: []controller.Key{controller.KeyEscape}},
	}

	handle, err := e.InitManualMode(m)
	if err != nil {
		t.Fatalf("InitManualMode: %v", err)
	}

	handle.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.WaitForStopped(ctx); err != nil {
		t.Fatalf("WaitForStopped: %v", err)
	}
	if e.State() != StateStopped {
		t.Fatalf("engine did not reach STOPPED, got %s", e.State())
	}

	if _, err := os.Stat(filepath.Join(saveDir, "computercraft", "computer", "1", "program.lua")); err != nil {
		t.Fatalf("expected synced file: %v", err)
	}
}

func TestWaitForStoppedRespectsContextCancellation(t *testing.T) {
	p := planner.New(planner.Config{SourceRoot: t.TempDir(), MinecraftSavePath: t.TempDir()}, nil, time.Minute)
	e := New(p, ui.Noop{}, nil)
	e.setState(StateRunning)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := e.WaitForStopped(ctx); err == nil {
		t.Fatal("expected WaitForStopped to return an error when the engine never stops before the deadline")
	}
}

func TestCreateSyncPlanRejectsOutsideStartingOrRunning(t *testing.T) {
	p := planner.New(planner.Config{SourceRoot: t.TempDir(), MinecraftSavePath: t.TempDir()}, nil, time.Minute)
	e := New(p, ui.Noop{}, nil)

	if _, err := e.CreateSyncPlan(planner.Options{}); err == nil {
		t.Fatal("expected error calling createSyncPlan while IDLE")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := planner.New(planner.Config{SourceRoot: t.TempDir(), MinecraftSavePath: t.TempDir()}, nil, time.Minute)
	e := New(p, ui.Noop{}, nil)

	e.Stop()
	e.Stop()

	if e.State() != StateIdle {
		t.Fatalf("Stop() on an IDLE engine should be a no-op, got %s", e.State())
	}
}

func TestInvalidateCacheSafeInAnyState(t *testing.T) {
	p := planner.New(planner.Config{SourceRoot: t.TempDir(), MinecraftSavePath: t.TempDir()}, nil, time.Minute)
	e := New(p, ui.Noop{}, nil)

	e.InvalidateCache("idle")
	e.setState(StateRunning)
	e.InvalidateCache("running")
	e.setState(StateError)
	e.InvalidateCache("error")
}
