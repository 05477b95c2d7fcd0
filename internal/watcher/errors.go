package watcher

// ConnectionError is returned by TestConnection when the mailbox or the
// notifier cannot be reached
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "connection failed: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
