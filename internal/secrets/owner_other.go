//go:build !unix

package secrets

import "io/fs"

// checkOwner is a no-op where files carry no POSIX owner.
func checkOwner(fs.FileInfo) error {
	return nil
}

// Permission bits are not meaningful on these platforms.
const enforceMode = false
