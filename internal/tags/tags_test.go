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

package tags_test

import (
	"database/sql"
	"sort"
	"testing"
	"time"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"

	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/storetest"
	"github.com/arsmoriendy/htfs/internal/tags"
)

func TestTags(t *testing.T) { RunTests(t) }

type TagsTest struct {
	db    *sql.DB
	close func()
}

func init() { RegisterTestSuite(&TagsTest{}) }

func (t *TagsTest) SetUp(ti *TestInfo) {
	pool, closeFn := storetest.New()
	t.db = pool.DB
	t.close = closeFn
}

func (t *TagsTest) TearDown() {
	t.close()
}

// newIno inserts a minimal file_attrs row and returns its inode, so tests
// can associate tags with something that satisfies the foreign key.
func (t *TagsTest) newIno() int64 {
	now := time.Now().Unix()
	var ino int64
	err := t.db.QueryRow(`
		INSERT INTO file_attrs (size, blocks, atime, mtime, ctime, crtime, kind, perm, nlink, uid, gid, rdev, blksize, flags)
		VALUES (0, 0, ?, ?, ?, ?, ?, ?, 1, ?, ?, 0, 4096, 0)
		RETURNING ino`,
		now, now, now, now, store.KindRegularFile, 0o644, storetest.Uid, storetest.Gid).Scan(&ino)
	AssertEq(nil, err)
	return ino
}

func (t *TagsTest) ResolveCreatesOnFirstUse() {
	tid, err := tags.Resolve(t.db, "#work")
	AssertEq(nil, err)
	ExpectNe(0, tid)

	// Second resolve of the same name returns the same tid, not a new row.
	tid2, err := tags.Resolve(t.db, "#work")
	AssertEq(nil, err)
	ExpectEq(tid, tid2)
}

func (t *TagsTest) LookupMissingIsNotFound() {
	_, found, err := tags.Lookup(t.db, "#nope")
	AssertEq(nil, err)
	ExpectFalse(found)
}

func (t *TagsTest) LookupFindsResolved() {
	tid, err := tags.Resolve(t.db, "#home")
	AssertEq(nil, err)

	got, found, err := tags.Lookup(t.db, "#home")
	AssertEq(nil, err)
	ExpectTrue(found)
	ExpectEq(tid, got)
}

func (t *TagsTest) OfReturnsAssociations() {
	ino := t.newIno()
	t1, err := tags.Resolve(t.db, "#a")
	AssertEq(nil, err)
	t2, err := tags.Resolve(t.db, "#b")
	AssertEq(nil, err)

	_, err = t.db.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, ino, t1)
	AssertEq(nil, err)
	_, err = t.db.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, ino, t2)
	AssertEq(nil, err)

	got, err := tags.Of(t.db, ino)
	AssertEq(nil, err)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	want := []int64{t1, t2}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	ExpectThat(got, ElementsAre(want[0], want[1]))
}

func (t *TagsTest) OfEmptyForUntaggedInode() {
	ino := t.newIno()
	got, err := tags.Of(t.db, ino)
	AssertEq(nil, err)
	ExpectEq(0, len(got))
}

func (t *TagsTest) DeleteIfOrphanKeepsReferencedTag() {
	ino := t.newIno()
	tid, err := tags.Resolve(t.db, "#kept")
	AssertEq(nil, err)
	_, err = t.db.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, ino, tid)
	AssertEq(nil, err)

	AssertEq(nil, tags.DeleteIfOrphan(t.db, tid))

	_, found, err := tags.Lookup(t.db, "#kept")
	AssertEq(nil, err)
	ExpectTrue(found)
}

func (t *TagsTest) DeleteIfOrphanDropsUnreferencedTag() {
	tid, err := tags.Resolve(t.db, "#gone")
	AssertEq(nil, err)

	AssertEq(nil, tags.DeleteIfOrphan(t.db, tid))

	_, found, err := tags.Lookup(t.db, "#gone")
	AssertEq(nil, err)
	ExpectFalse(found)
}

// Membership over zero tags is the intersection over the empty family,
// which IntersectionSQL deliberately renders as "matches nothing" (see its
// doc comment) rather than the universal set, since callers only ever pass
// an inode's own tag set and an inode with no tags has no business being
// treated as a member of every file in the pool.
func (t *TagsTest) MembershipOfNoTagsIsEmpty() {
	got, err := tags.Membership(t.db, nil)
	AssertEq(nil, err)
	ExpectEq(0, len(got))
}

func (t *TagsTest) MembershipIsIntersectionNotUnion() {
	work, err := tags.Resolve(t.db, "#work")
	AssertEq(nil, err)
	urgent, err := tags.Resolve(t.db, "#urgent")
	AssertEq(nil, err)

	both := t.newIno()
	workOnly := t.newIno()
	urgentOnly := t.newIno()

	for _, row := range []struct {
		ino int64
		tid int64
	}{
		{both, work}, {both, urgent},
		{workOnly, work},
		{urgentOnly, urgent},
	} {
		_, err := t.db.Exec(`INSERT INTO associated_tags (ino, tid) VALUES (?, ?)`, row.ino, row.tid)
		AssertEq(nil, err)
	}

	got, err := tags.Membership(t.db, []int64{work, urgent})
	AssertEq(nil, err)
	ExpectThat(got, ElementsAre(both))
}
