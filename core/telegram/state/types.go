package state

// Manager keeps at most one session of type S per user and serializes work
// for a single user through Lock.
type Manager[S any] interface {
	// Get returns the user's session, if any.
	Get(userID int64) (S, bool)
	// Set stores or replaces the user's session.
	Set(userID int64, session S)
	// Clear drops the user's session.
	Clear(userID int64)
	// InProgress reports whether the user has a session.
	InProgress(userID int64) bool
	// Lock blocks until the caller owns the user's lane and returns the unlock func.
	Lock(userID int64) func()
	// Len reports how many sessions are active.
	Len() int
}
