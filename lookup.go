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

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/perm"
)

func (fs *adapter) LookUpInode(ctx context.Context, req *LookUpInodeRequest) (*LookUpInodeResponse, error) {
	_, finish := fs.startOp(ctx, "LookUpInode")

	parent, err := attrs.Get(fs.pool.DB, req.Parent)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}
	if !perm.Check(parent.Uid, parent.Gid, parent.Perm, req.Header.Uid, req.Header.Gid, permRead) {
		finish(errPermissionDenied)
		return nil, toErrno(errPermissionDenied)
	}

	childIno, ok, err := names.Resolve(fs.pool.DB, fs.prefix, req.Parent, req.Name)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}
	if !ok {
		finish(nil)
		return nil, toErrno(errNoSuchEntry)
	}

	child, err := attrs.Get(fs.pool.DB, childIno)
	if err != nil {
		finish(err)
		return nil, toErrno(err)
	}

	finish(nil)
	now := time.Now()
	return &LookUpInodeResponse{
		Entry: ChildInodeEntry{
			Child:                childIno,
			Attr:                 child,
			AttributesExpiration: now.Add(entryTimeout),
			EntryExpiration:      now.Add(entryTimeout),
		},
	}, nil
}
