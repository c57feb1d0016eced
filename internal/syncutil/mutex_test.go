package syncutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMutexLockUnlock(t *testing.T) {
	m := NewMutex("test")
	m.Lock()
	m.Unlock()
	m.Lock()
	m.Unlock()
}

func TestMutexTryLockFailsWhileHeld(t *testing.T) {
	m := NewMutex("test")
	require.True(t, m.TryLock())
	require.False(t, m.TryLock())
	m.Unlock()
	require.True(t, m.TryLock())
	m.Unlock()
}

func TestMutexUnlockWithoutLockPanics(t *testing.T) {
	m := NewMutex("test")
	require.Panics(t, func() { m.Unlock() })
}

func TestRecursiveMutexNestedLockDoesNotDeadlock(t *testing.T) {
	r := NewRecursiveMutex("test")
	r.Lock()
	r.Lock()
	r.Unlock()
	r.Unlock()

	// After fully unwinding, a fresh Lock/Unlock cycle must still work.
	r.Lock()
	r.Unlock()
}

func TestRecursiveMutexUnlockWithoutLockPanics(t *testing.T) {
	r := NewRecursiveMutex("test")
	require.Panics(t, func() { r.Unlock() })
}

func TestReaderWriterMutexSharedAndExclusive(t *testing.T) {
	rw := NewReaderWriterMutex()
	rw.LockShared()
	rw.UnlockShared()
	rw.LockExclusive()
	rw.UnlockExclusive()
}
