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

// Package store owns the six tables and one view described by the
// schema, the Go types that mirror their rows, and the pool that opens a
// database and brings it up to the current migration.
package store

import "time"

// Kind mirrors file_attrs.kind. Only Directory and RegularFile are ever
// produced by the engines above this package, but the full POSIX file type
// space is represented so that an attrs row round-trips without loss.
type Kind int

const (
	KindNamedPipe Kind = iota
	KindCharDevice
	KindBlockDevice
	KindDirectory
	KindRegularFile
	KindSymlink
	KindSocket
)

// RootIno is the inode of the mountpoint, created once at Bootstrap and
// never produced by mkdir/mknod.
const RootIno int64 = 1

// FileAttr is the Go mirror of a file_attrs row. Times are stored as Unix
// seconds in the database and widened to time.Time at this boundary.
type FileAttr struct {
	Ino     int64
	Size    uint64
	Blocks  uint64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Crtime  time.Time
	Kind    Kind
	Perm    uint32 // classical 9-bit mode, no setid/sticky
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	BlkSize uint32
	Flags   uint32
}

// ReadDirRow is a row of the readdir_rows view: a file_attrs row joined to
// its file_names entry.
type ReadDirRow struct {
	Attr FileAttr
	Name string
}

// Tag mirrors a tags row.
type Tag struct {
	Tid  int64
	Name string
}
