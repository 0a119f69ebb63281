package util

import (
	"path"

	"golang.org/x/sys/unix"
)

// CheckPermsRX reports whether uid/gid can read and traverse checkPath,
// requiring execute permission on every parent directory. Lets create
// reject an unreadable rootfs up front instead of failing deep inside
// the child.
func CheckPermsRX(checkPath string, uid, gid int) error {
	var stat unix.Stat_t
	err := unix.Stat(checkPath, &stat)
	if err != nil {
		return err
	}

	isOwner := stat.Uid == uint32(uid)
	isGroupMember := (stat.Gid == uint32(gid)) && !isOwner
	isOther := !isOwner && !isGroupMember

	// check requested perms
	allowsOwner := (stat.Mode&unix.S_IRUSR != 0) && (stat.Mode&unix.S_IXUSR != 0)
	allowsGroup := (stat.Mode&unix.S_IRGRP != 0) && (stat.Mode&unix.S_IXGRP != 0)
	allowsOther := (stat.Mode&unix.S_IROTH != 0) && (stat.Mode&unix.S_IXOTH != 0)

	switch {
	case isOwner && !allowsOwner:
		return unix.EACCES
	case isGroupMember && !allowsGroup:
		return unix.EACCES
	case isOther && !allowsOther:
		return unix.EACCES
	}

	// walk up the directory tree
	dir := path.Dir(checkPath)
	for dir != "/" {
		err = unix.Stat(dir, &stat)
		if err != nil {
			return err
		}

		isOwner = stat.Uid == uint32(uid)
		isGroupMember = (stat.Gid == uint32(gid)) && !isOwner
		isOther = !isOwner && !isGroupMember

		// require execute permission
		allowsOwner := stat.Mode&unix.S_IXUSR != 0
		allowsGroup := stat.Mode&unix.S_IXGRP != 0
		allowsOther := stat.Mode&unix.S_IXOTH != 0

		switch {
		case isOwner && !allowsOwner:
			return unix.EACCES
		case isGroupMember && !allowsGroup:
			return unix.EACCES
		case isOther && !allowsOther:
			return unix.EACCES
		}

		dir = path.Dir(dir)
	}

	return nil
}
