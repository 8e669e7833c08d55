package imap

import "fmt"

// ConnectionError means the server could not be reached or refused the login.
// An import cannot continue without a session.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// FolderSelectError means one folder could not be opened. Other folders are unaffected.
type FolderSelectError struct {
	Folder string
	Err    error
}

func (e *FolderSelectError) Error() string {
	return fmt.Sprintf("failed to select folder %q: %v", e.Folder, e.Err)
}

func (e *FolderSelectError) Unwrap() error {
	return e.Err
}

// FetchGapError means a UID returned by search had no body in the fetch response,
// usually because the message was expunged in between.
type FetchGapError struct {
	UID uint32
}

func (e *FetchGapError) Error() string {
	return fmt.Sprintf("no message body returned for UID %d", e.UID)
}
