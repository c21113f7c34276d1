package deploy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by a Transport when the remote path does not exist.
var ErrNotFound = errors.New("remote path not found")

// notFoundText is what FTP servers put in a 550 reply for a missing path.
const notFoundText = "No such file or directory"

// IsNotFound reports whether err means the remote path is missing.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) || strings.Contains(err.Error(), notFoundText)
}

// ConnectionError is a failure to open or authenticate the FTP session.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteOperationError is any failing remote call after the session is up.
type RemoteOperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// LiveMissingError means the live directory was moved to Backup but the
// stage could not be promoted. The site is down until someone renames a
// directory back by hand.
type LiveMissingError struct {
	Live   string
	Backup string
	Err    error
}

func (e *LiveMissingError) Error() string {
	return fmt.Sprintf("site left without a live directory; manual recovery required using backup `%s` (rename it to %s): %v",
		e.Backup, e.Live, e.Err)
}

func (e *LiveMissingError) Unwrap() error { return e.Err }
