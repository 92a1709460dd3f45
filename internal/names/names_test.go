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

package names_test

import (
	"database/sql"
	"testing"
	"time"

	. "github.com/jacobsa/ogletest"

	"github.com/arsmoriendy/htfs/internal/names"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/storetest"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func TestNames(t *testing.T) { RunTests(t) }

const prefix = "#"

type NamesTest struct {
	db    *sql.DB
	close func()
}

func init() { RegisterTestSuite(&NamesTest{}) }

func (t *NamesTest) SetUp(ti *TestInfo) {
	pool, closeFn := storetest.New()
	t.db = pool.DB
	t.close = closeFn
}

func (t *NamesTest) TearDown() {
	t.close()
}

func (t *NamesTest) mkInode(kind store.Kind, name string) int64 {
	now := time.Now().Unix()
	var ino int64
	err := t.db.QueryRow(`
		INSERT INTO file_attrs (size, blocks, atime, mtime, ctime, crtime, kind, perm, nlink, uid, gid, rdev, blksize, flags)
		VALUES (0, 0, ?, ?, ?, ?, ?, ?, 1, ?, ?, 0, 4096, 0)
		RETURNING ino`,
		now, now, now, now, kind, 0o755, storetest.Uid, storetest.Gid).Scan(&ino)
	AssertEq(nil, err)
	_, err = t.db.Exec(`INSERT INTO file_names (ino, name) VALUES (?, ?)`, ino, name)
	AssertEq(nil, err)
	return ino
}

func (t *NamesTest) linkOrdinary(parent, child int64) {
	_, err := t.db.Exec(`INSERT INTO dir_contents (dir_ino, cnt_ino) VALUES (?, ?)`, parent, child)
	AssertEq(nil, err)
}

func (t *NamesTest) IsTagPrefixed() {
	ExpectTrue(names.IsTagPrefixed("#", "#work"))
	ExpectFalse(names.IsTagPrefixed("#", "work"))
	ExpectFalse(names.IsTagPrefixed("", "#work"))
}

func (t *NamesTest) ResolvesOrdinaryChildOfRoot() {
	child := t.mkInode(store.KindDirectory, "docs")
	t.linkOrdinary(store.RootIno, child)

	got, ok, err := names.Resolve(t.db, prefix, store.RootIno, "docs")
	AssertEq(nil, err)
	ExpectTrue(ok)
	ExpectEq(child, got)
}

func (t *NamesTest) MissingNameIsNotFound() {
	_, ok, err := names.Resolve(t.db, prefix, store.RootIno, "nope")
	AssertEq(nil, err)
	ExpectFalse(ok)
}

func (t *NamesTest) ResolvesViaTagIntersection() {
	tagDir := t.mkInode(store.KindDirectory, "#work")
	t.linkOrdinary(store.RootIno, tagDir)
	tid, err := tags.Resolve(t.db, "#work")
	AssertEq(nil, err)
	_, err = t.db.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, tagDir, tid)
	AssertEq(nil, err)

	file := t.mkInode(store.KindRegularFile, "report")
	_, err = t.db.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, file, tid)
	AssertEq(nil, err)

	got, ok, err := names.Resolve(t.db, prefix, tagDir, "report")
	AssertEq(nil, err)
	ExpectTrue(ok)
	ExpectEq(file, got)
}

func (t *NamesTest) TagDirectoryAlsoResolvesDirContentsChild() {
	tagDir := t.mkInode(store.KindDirectory, "#work")
	t.linkOrdinary(store.RootIno, tagDir)

	nested := t.mkInode(store.KindDirectory, "#urgent")
	t.linkOrdinary(tagDir, nested)

	got, ok, err := names.Resolve(t.db, prefix, tagDir, "#urgent")
	AssertEq(nil, err)
	ExpectTrue(ok)
	ExpectEq(nested, got)
}
