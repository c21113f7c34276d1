// Package backup picks names for rotated live directories.
package backup

import (
	"regexp"
	"strconv"

	"ftp_deploy/models"
)

const (
	// LiveDir is the remote directory served to visitors.
	LiveDir = "html"
	// Prefix is prepended to the backup index.
	Prefix = LiveDir + ".bak."
)

var backupName = regexp.MustCompile(`^html\.bak\.(\d+)$`)

// Index returns the numeric suffix of a backup directory name.
func Index(name string) (int, bool) {
	m := backupName.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextName returns the first backup name above every existing one,
// html.bak.1 if the listing has none.
func NextName(entries []models.RemoteEntry) string {
	max := 0
	for _, e := range entries {
		if n, ok := Index(e.Name); ok && n > max {
			max = n
		}
	}
	return Prefix + strconv.Itoa(max+1)
}

// Exists reports whether the listing contains an entry called name.
func Exists(entries []models.RemoteEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}
