package lock

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTryLockThenUnlockAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nabd.lock")

	l1 := New(path)
	if err := l1.TryLock(); err != nil {
		t.Fatalf("first lock should succeed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected lock file to exist: %v", err)
	}
	if len(data) == 0 {
		t.Errorf("expected the lock file to contain a pid")
	}

	if err := l1.Unlock(); err != nil {
		t.Fatalf("unlock should succeed: %v", err)
	}

	l2 := New(path)
	if err := l2.TryLock(); err != nil {
		t.Fatalf("lock should be reacquirable after unlock: %v", err)
	}
	_ = l2.Unlock()
}

func TestTryLockFailsWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nabd.lock")

	l1 := New(path)
	if err := l1.TryLock(); err != nil {
		t.Fatalf("first lock should succeed: %v", err)
	}
	defer l1.Unlock()

	l2 := New(path)
	if err := l2.TryLock(); err == nil {
		t.Fatalf("expected second TryLock to fail while the first instance holds it")
	}
}
