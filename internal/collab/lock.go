package collab

import (
	"time"
)

// single-holder advisory edit lock, Unlocked -> Locked(holder) -> Unlocked
// not safe for concurrent use, the owning session serializes access
type EditLock struct {
	holder     string
	acquiredAt time.Time
}

// takes the lock for userID, changed is false when userID already held it
func (l *EditLock) Acquire(userID string, now time.Time) (changed bool, err error) {
	switch l.holder {
	case "":
		l.holder = userID
		l.acquiredAt = now
		return true, nil
	case userID:
		return false, nil
	default:
		return false, &LockHeldError{Holder: l.holder}
	}
}

// gives the lock back, changed is false when it was not held at all
func (l *EditLock) Release(userID string) (changed bool, err error) {
	switch l.holder {
	case "":
		return false, nil
	case userID:
		l.holder = ""
		l.acquiredAt = time.Time{}
		return true, nil
	default:
		return false, ErrNotLockHolder
	}
}

// unlocks regardless of holder and returns who held it
func (l *EditLock) ForceRelease() (holder string, released bool) {
	if l.holder == "" {
		return "", false
	}

	holder = l.holder
	l.holder = ""
	l.acquiredAt = time.Time{}

	return holder, true
}

// returns the current holder, empty when unlocked
func (l *EditLock) Holder() string {
	return l.holder
}

func (l *EditLock) View() LockView {
	if l.holder == "" {
		return LockView{}
	}

	acquiredAt := l.acquiredAt

	return LockView{
		Holder:     l.holder,
		AcquiredAt: &acquiredAt,
	}
}
