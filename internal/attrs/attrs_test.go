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

package attrs_test

import (
	"database/sql"
	"testing"
	"time"

	. "github.com/jacobsa/ogletest"

	"github.com/arsmoriendy/htfs/internal/attrs"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/storetest"
)

func TestAttrs(t *testing.T) { RunTests(t) }

type AttrsTest struct {
	db    *sql.DB
	close func()
}

func init() { RegisterTestSuite(&AttrsTest{}) }

func (t *AttrsTest) SetUp(ti *TestInfo) {
	pool, closeFn := storetest.New()
	t.db = pool.DB
	t.close = closeFn
}

func (t *AttrsTest) TearDown() {
	t.close()
}

func (t *AttrsTest) InsertThenGetRoundTrips() {
	now := time.Now().Truncate(time.Second)
	ino, err := attrs.Insert(t.db, store.FileAttr{
		Kind: store.KindRegularFile, Perm: 0o640, Nlink: 1,
		Uid: 42, Gid: 7,
		Atime: now, Mtime: now, Ctime: now, Crtime: now,
		BlkSize: 4096,
	})
	AssertEq(nil, err)
	ExpectNe(0, ino)

	got, err := attrs.Get(t.db, ino)
	AssertEq(nil, err)
	ExpectEq(ino, got.Ino)
	ExpectEq(uint32(0o640), got.Perm)
	ExpectEq(uint32(42), got.Uid)
	ExpectEq(uint32(7), got.Gid)
	ExpectEq(store.KindRegularFile, got.Kind)
	ExpectTrue(got.Mtime.Equal(now))
}

func (t *AttrsTest) GetMissingIsNotFound() {
	_, err := attrs.Get(t.db, 99999)
	ExpectEq(sql.ErrNoRows, err)
}

func (t *AttrsTest) UpdateReplacesColumns() {
	now := time.Now().Truncate(time.Second)
	ino, err := attrs.Insert(t.db, store.FileAttr{
		Kind: store.KindRegularFile, Perm: 0o644, Nlink: 1,
		Uid: 1, Gid: 1,
		Atime: now, Mtime: now, Ctime: now, Crtime: now,
		BlkSize: 4096,
	})
	AssertEq(nil, err)

	updated := store.FileAttr{
		Ino: ino, Kind: store.KindRegularFile, Perm: 0o600, Nlink: 1,
		Uid: 9, Gid: 9,
		Atime: now, Mtime: now.Add(time.Minute), Ctime: now, Crtime: now,
		BlkSize: 4096, Size: 100,
	}
	AssertEq(nil, attrs.Update(t.db, updated))

	got, err := attrs.Get(t.db, ino)
	AssertEq(nil, err)
	ExpectEq(uint32(0o600), got.Perm)
	ExpectEq(uint32(9), got.Uid)
	ExpectEq(uint64(100), got.Size)
}

func (t *AttrsTest) TouchMtimeAdvancesMtimeAndCtime() {
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	ino, err := attrs.Insert(t.db, store.FileAttr{
		Kind: store.KindRegularFile, Perm: 0o644, Nlink: 1,
		Uid: 1, Gid: 1,
		Atime: past, Mtime: past, Ctime: past, Crtime: past,
		BlkSize: 4096,
	})
	AssertEq(nil, err)

	AssertEq(nil, attrs.TouchMtime(t.db, ino))

	got, err := attrs.Get(t.db, ino)
	AssertEq(nil, err)
	ExpectTrue(got.Mtime.After(past))
	ExpectTrue(got.Ctime.After(past))
}

func (t *AttrsTest) TouchAtimeAdvancesOnlyAtime() {
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	ino, err := attrs.Insert(t.db, store.FileAttr{
		Kind: store.KindRegularFile, Perm: 0o644, Nlink: 1,
		Uid: 1, Gid: 1,
		Atime: past, Mtime: past, Ctime: past, Crtime: past,
		BlkSize: 4096,
	})
	AssertEq(nil, err)

	AssertEq(nil, attrs.TouchAtime(t.db, ino))

	got, err := attrs.Get(t.db, ino)
	AssertEq(nil, err)
	ExpectTrue(got.Atime.After(past))
	ExpectTrue(got.Mtime.Equal(past))
}
