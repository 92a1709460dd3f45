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

	"github.com/sirupsen/logrus"

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/perm"
	"github.com/arsmoriendy/htfs/internal/store"
)

// entryTimeout is the attribute/entry cache duration replies carry, per §6.
const entryTimeout = 1 * time.Second

// adapter is the FUSE Adapter of §2: it maps each incoming op to the Name
// Resolver, Tag Resolver, Attribute Store, Paged Content Store and
// Directory/Rename Engines below, converts their errors to POSIX errno, and
// drives the blocking runtime. It holds no state of its own beyond the
// shared connection pool, the configured tag prefix, and a logger, mirroring
// memFS's fs.clock/fs.mu/fs.inodes triad reduced to what a stateless,
// SQL-backed filesystem actually needs to hold in memory: nothing mutable.
type adapter struct {
	pool   *store.Pool
	prefix string
	log    *logrus.Logger
}

// NewFileSystem constructs the FileSystem implementation backed by pool,
// using prefix to recognize tag directories.
func NewFileSystem(pool *store.Pool, prefix string, log *logrus.Logger) FileSystem {
	return &adapter{pool: pool, prefix: prefix, log: log}
}

func (fs *adapter) Init(ctx context.Context, req *InitRequest) (*InitResponse, error) {
	_, finish := fs.startOp(ctx, "Init")
	defer func() { finish(nil) }()

	if err := store.Bootstrap(fs.pool.DB, req.Header.Uid, req.Header.Gid, 0o755); err != nil {
		return nil, err
	}
	return &InitResponse{}, nil
}

func (fs *adapter) Destroy(ctx context.Context, req *DestroyRequest) (*DestroyResponse, error) {
	_, finish := fs.startOp(ctx, "Destroy")
	defer func() { finish(nil) }()

	if err := fs.pool.Close(); err != nil {
		return nil, err
	}
	return &DestroyResponse{}, nil
}

func (fs *adapter) GetInodeAttributes(ctx context.Context, req *GetInodeAttributesRequest) (*GetInodeAttributesResponse, error) {
	ctx, finish := fs.startOp(ctx, "GetInodeAttributes")

	a, err := attrs.Get(fs.pool.DB, req.Inode)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &GetInodeAttributesResponse{
		Attr:                 a,
		AttributesExpiration: time.Now().Add(entryTimeout),
	}, nil
}

func (fs *adapter) SetInodeAttributes(ctx context.Context, req *SetInodeAttributesRequest) (*SetInodeAttributesResponse, error) {
	_, finish := fs.startOp(ctx, "SetInodeAttributes")

	a, err := attrs.Get(fs.pool.DB, req.Inode)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	if !perm.Check(a.Uid, a.Gid, a.Perm, req.Header.Uid, req.Header.Gid, permWrite) {
		finish(errPermissionDenied)
		return nil, toErrno(errPermissionDenied)
	}

	if req.Mode != nil {
		a.Perm = *req.Mode & 0o777
	}
	if req.Uid != nil {
		a.Uid = *req.Uid
	}
	if req.Gid != nil {
		a.Gid = *req.Gid
	}
	if req.Atime != nil {
		a.Atime = *req.Atime
	}
	if req.Mtime != nil {
		a.Mtime = *req.Mtime
	}
	a.Ctime = time.Now()

	if req.Size != nil {
		if err := fs.resizeInTx(req.Inode, *req.Size); err != nil {
			finish(err)
			return nil, toErrno(err)
		}
		resized, err := attrs.Get(fs.pool.DB, req.Inode)
		if err != nil {
			finish(err)
			return nil, toErrno(err)
		}
		a.Size = resized.Size
		if req.Mtime == nil {
			a.Mtime = resized.Mtime
		}
	}

	if err := attrs.Update(fs.pool.DB, a); err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	return &SetInodeAttributesResponse{
		Attr:                 a,
		AttributesExpiration: time.Now().Add(entryTimeout),
	}, nil
}

const (
	permRead    = uint32(perm.Read)
	permWrite   = uint32(perm.Write)
	permExecute = uint32(perm.Execute)
)
