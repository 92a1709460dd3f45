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

package htfs

import (
	"context"
	"time"

	"github.com/arsmoriendy/htfs/internal/store"
)

// FileSystem is the interface the FUSE adapter dispatches onto. Unlike a
// general-purpose file system, HTFS keeps no open file or directory
// handles: read, write and readdir all carry the inode directly and are
// idempotent with respect to file descriptors (§9 Design Notes, "No
// handles"). Must be safe for concurrent access, though in practice at most
// one method runs at a time (§5).
type FileSystem interface {
	// Init is called once when mounting, before any other method. It must
	// succeed for the mount to succeed.
	Init(ctx context.Context, req *InitRequest) (*InitResponse, error)

	// Destroy is called once when unmounting, after the last other method
	// call has returned.
	Destroy(ctx context.Context, req *DestroyRequest) (*DestroyResponse, error)

	///////////////////////////////////
	// Inodes
	///////////////////////////////////

	// LookUpInode resolves a child by name within a parent directory,
	// honoring tag-intersection visibility per §4.3.
	LookUpInode(ctx context.Context, req *LookUpInodeRequest) (*LookUpInodeResponse, error)

	// GetInodeAttributes refreshes the attributes for an inode whose ID was
	// previously returned by LookUpInode or a creation method.
	GetInodeAttributes(ctx context.Context, req *GetInodeAttributesRequest) (*GetInodeAttributesResponse, error)

	// SetInodeAttributes changes attributes for an inode (chmod, chown,
	// truncate via ftruncate, utimes).
	SetInodeAttributes(ctx context.Context, req *SetInodeAttributesRequest) (*SetInodeAttributesResponse, error)

	///////////////////////////////////
	// Inode creation
	///////////////////////////////////

	// MkDir creates a directory inode as a child of an existing directory
	// inode, per §4.6.
	MkDir(ctx context.Context, req *MkDirRequest) (*MkDirResponse, error)

	// Mknod creates a regular file inode as a child of an existing
	// directory inode. Only RegularFile is supported; any other requested
	// kind is ENOSYS, per §4.6.
	Mknod(ctx context.Context, req *MknodRequest) (*MknodResponse, error)

	///////////////////////////////////
	// Inode destruction
	///////////////////////////////////

	// RmDir unlinks an empty directory from its parent, dissolving its tag
	// if it was the last directory bearing that name, per §4.6.
	RmDir(ctx context.Context, req *RmDirRequest) (*RmDirResponse, error)

	// Unlink removes a file from its parent.
	Unlink(ctx context.Context, req *UnlinkRequest) (*UnlinkResponse, error)

	///////////////////////////////////
	// Rename
	///////////////////////////////////

	// Rename moves an inode between (possibly tag-prefixed) parents,
	// re-tagging descendants as needed, per §4.7.
	Rename(ctx context.Context, req *RenameRequest) (*RenameResponse, error)

	///////////////////////////////////
	// Directory contents
	///////////////////////////////////

	// ReadDir lists the entries of a directory starting at the given
	// offset, per §4.6.
	ReadDir(ctx context.Context, req *ReadDirRequest) (*ReadDirResponse, error)

	///////////////////////////////////
	// File contents
	///////////////////////////////////

	// ReadFile reads a byte range from a regular file, per §4.5.
	ReadFile(ctx context.Context, req *ReadFileRequest) (*ReadFileResponse, error)

	// WriteFile writes a byte range to a regular file, sparse-filling any
	// gap, per §4.5.
	WriteFile(ctx context.Context, req *WriteFileRequest) (*WriteFileResponse, error)
}

////////////////////////////////////////////////////////////////////////
// Simple types
////////////////////////////////////////////////////////////////////////

// Ino uniquely identifies a file or directory within the mount.
type Ino = int64

// RootIno is the distinguished inode of the mountpoint.
const RootIno Ino = store.RootIno

// RequestHeader carries the credentials of the process making the request,
// present on every request below.
type RequestHeader struct {
	Uid uint32
	Gid uint32
}

// ChildInodeEntry describes a child inode within its parent. Shared by the
// responses of LookUpInode, MkDir, and Mknod.
type ChildInodeEntry struct {
	Child Ino
	Attr  store.FileAttr

	// AttributesExpiration and EntryExpiration are both set to 1 second
	// from now per §6's "replies carry attribute timeouts of 1 second".
	AttributesExpiration time.Time
	EntryExpiration      time.Time
}

////////////////////////////////////////////////////////////////////////
// Requests and responses
////////////////////////////////////////////////////////////////////////

type InitRequest struct {
	Header RequestHeader
}

type InitResponse struct{}

type DestroyRequest struct{}

type DestroyResponse struct{}

type LookUpInodeRequest struct {
	Header RequestHeader
	Parent Ino
	Name   string
}

type LookUpInodeResponse struct {
	Entry ChildInodeEntry
}

type GetInodeAttributesRequest struct {
	Header RequestHeader
	Inode  Ino
}

type GetInodeAttributesResponse struct {
	Attr                 store.FileAttr
	AttributesExpiration time.Time
}

type SetInodeAttributesRequest struct {
	Header RequestHeader
	Inode  Ino

	// Fields to modify, or nil for attributes that don't need a change.
	Size  *uint64
	Mode  *uint32
	Atime *time.Time
	Mtime *time.Time
	Uid   *uint32
	Gid   *uint32
}

type SetInodeAttributesResponse struct {
	Attr                 store.FileAttr
	AttributesExpiration time.Time
}

type MkDirRequest struct {
	Header RequestHeader
	Parent Ino
	Name   string
	Mode   uint32
}

type MkDirResponse struct {
	Entry ChildInodeEntry
}

type MknodRequest struct {
	Header RequestHeader
	Parent Ino
	Name   string
	Mode   uint32
	Kind   store.Kind
}

type MknodResponse struct {
	Entry ChildInodeEntry
}

type RmDirRequest struct {
	Header RequestHeader
	Parent Ino
	Name   string
}

type RmDirResponse struct{}

type UnlinkRequest struct {
	Header RequestHeader
	Parent Ino
	Name   string
}

type UnlinkResponse struct{}

// RenameRequest mirrors §4.7's inputs. Neither parent being the same is the
// common case but not required; OldParent == NewParent with OldName ==
// NewName must be a no-op (R3).
type RenameRequest struct {
	Header    RequestHeader
	OldParent Ino
	OldName   string
	NewParent Ino
	NewName   string
}

type RenameResponse struct{}

type ReadDirRequest struct {
	Header RequestHeader
	Inode  Ino

	// Offset within the directory stream, opaque to the kernel and
	// interpreted here as a simple row count (LIMIT -1 OFFSET n per §4.6).
	Offset int
}

type Dirent struct {
	Ino  Ino
	Name string
	Kind store.Kind
}

type ReadDirResponse struct {
	Entries []Dirent
}

type ReadFileRequest struct {
	Header RequestHeader
	Inode  Ino
	Offset int64
	Size   int
}

type ReadFileResponse struct {
	// Data read. Less than the requested size indicates EOF; this is not
	// itself an error.
	Data []byte
}

type WriteFileRequest struct {
	Header RequestHeader
	Inode  Ino
	Offset int64
	Data   []byte
}

type WriteFileResponse struct{}
