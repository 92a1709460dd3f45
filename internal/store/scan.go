// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import "time"

// FileAttrColumns is the fixed column order shared by file_attrs and the
// readdir_rows view, so callers can build one SELECT list and one scan
// function for both.
const FileAttrColumns = "ino, size, blocks, atime, mtime, ctime, crtime, kind, perm, nlink, uid, gid, rdev, blksize, flags"

// Scanner is satisfied by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// ScanFileAttr reads one FileAttrColumns-shaped row into a FileAttr,
// widening the stored Unix-second integers back to time.Time.
func ScanFileAttr(s Scanner) (FileAttr, error) {
	var a FileAttr
	var atime, mtime, ctime, crtime int64
	var kind int

	err := s.Scan(
		&a.Ino, &a.Size, &a.Blocks,
		&atime, &mtime, &ctime, &crtime,
		&kind, &a.Perm, &a.Nlink, &a.Uid, &a.Gid, &a.Rdev, &a.BlkSize, &a.Flags,
	)
	if err != nil {
		return FileAttr{}, err
	}

	a.Kind = Kind(kind)
	a.Atime = time.Unix(atime, 0)
	a.Mtime = time.Unix(mtime, 0)
	a.Ctime = time.Unix(ctime, 0)
	a.Crtime = time.Unix(crtime, 0)
	return a, nil
}
