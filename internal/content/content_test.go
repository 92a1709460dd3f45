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

package content_test

import (
	"bytes"
	"database/sql"
	"testing"
	"time"

	. "github.com/jacobsa/ogletest"

	"github.com/arsmoriendy/htfs/internal/content"
	"github.com/arsmoriendy/htfs/internal/store"
	"github.com/arsmoriendy/htfs/internal/storetest"
)

func TestContent(t *testing.T) { RunTests(t) }

const pageSize = 4096

type ContentTest struct {
	db    *sql.DB
	close func()
}

func init() { RegisterTestSuite(&ContentTest{}) }

func (t *ContentTest) SetUp(ti *TestInfo) {
	pool, closeFn := storetest.New()
	t.db = pool.DB
	t.close = closeFn
}

func (t *ContentTest) TearDown() {
	t.close()
}

func (t *ContentTest) newIno() int64 {
	now := time.Now().Unix()
	var ino int64
	err := t.db.QueryRow(`
		INSERT INTO file_attrs (size, blocks, atime, mtime, ctime, crtime, kind, perm, nlink, uid, gid, rdev, blksize, flags)
		VALUES (0, 0, ?, ?, ?, ?, ?, ?, 1, ?, ?, 0, ?, 0)
		RETURNING ino`,
		now, now, now, now, store.KindRegularFile, 0o644, storetest.Uid, storetest.Gid, pageSize).Scan(&ino)
	AssertEq(nil, err)
	return ino
}

func (t *ContentTest) sizeOf(ino int64) uint64 {
	var size uint64
	err := t.db.QueryRow(`SELECT size FROM file_attrs WHERE ino = ?`, ino).Scan(&size)
	AssertEq(nil, err)
	return size
}

// R1: write then read back the same range from an initially empty file.
func (t *ContentTest) WriteThenReadRoundTrips() {
	ino := t.newIno()
	data := []byte("hello, tagged world")

	size, err := content.Write(t.db, ino, pageSize, 0, data)
	AssertEq(nil, err)
	ExpectEq(uint64(len(data)), size)

	got, err := content.Read(t.db, ino, pageSize, 0, len(data))
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(data, got))

	ExpectEq(uint64(len(data)), t.sizeOf(ino))
}

func (t *ContentTest) ReadEmptyFileIsEmpty() {
	ino := t.newIno()
	got, err := content.Read(t.db, ino, pageSize, 0, 10)
	AssertEq(nil, err)
	ExpectEq(0, len(got))
}

func (t *ContentTest) ReadPastEOFIsShort() {
	ino := t.newIno()
	_, err := content.Write(t.db, ino, pageSize, 0, []byte("abc"))
	AssertEq(nil, err)

	got, err := content.Read(t.db, ino, pageSize, 1, 100)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal([]byte("bc"), got))
}

// Writing across a page boundary must materialize both pages and read back
// whole.
func (t *ContentTest) WriteAcrossPageBoundary() {
	ino := t.newIno()
	data := make([]byte, pageSize+100)
	for i := range data {
		data[i] = byte(i)
	}

	_, err := content.Write(t.db, ino, pageSize, pageSize-50, data)
	AssertEq(nil, err)

	got, err := content.Read(t.db, ino, pageSize, pageSize-50, len(data))
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(data, got))
}

// Writing at an offset beyond current content must zero-fill the gap (the
// boundary behavior in §8): the number of pages materialized must cover
// ⌈end/PS⌉, and the gap bytes must read back as zero.
func (t *ContentTest) SparseWriteZeroFillsGap() {
	ino := t.newIno()

	_, err := content.Write(t.db, ino, pageSize, pageSize*2+10, []byte("x"))
	AssertEq(nil, err)

	gap, err := content.Read(t.db, ino, pageSize, 0, pageSize*2+10)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(make([]byte, pageSize*2+10), gap))

	tail, err := content.Read(t.db, ino, pageSize, pageSize*2+10, 1)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal([]byte("x"), tail))
}

// R2, n <= |A|: resize down truncates the read.
func (t *ContentTest) ResizeDownTruncates() {
	ino := t.newIno()
	data := bytes.Repeat([]byte("A"), 10)
	_, err := content.Write(t.db, ino, pageSize, 0, data)
	AssertEq(nil, err)

	AssertEq(nil, content.Resize(t.db, ino, pageSize, 4))

	got, err := content.Read(t.db, ino, pageSize, 0, 4)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(data[:4], got))
	ExpectEq(uint64(4), t.sizeOf(ino))
}

// R2, n > |A|: resize up zero-pads the tail.
func (t *ContentTest) ResizeUpZeroPads() {
	ino := t.newIno()
	data := []byte("AB")
	_, err := content.Write(t.db, ino, pageSize, 0, data)
	AssertEq(nil, err)

	AssertEq(nil, content.Resize(t.db, ino, pageSize, 5))

	got, err := content.Read(t.db, ino, pageSize, 0, 5)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(append([]byte("AB"), 0, 0, 0), got))
	ExpectEq(uint64(5), t.sizeOf(ino))
}

// S4: sparse write past one page, then truncate back below it. Only one
// page remains and its content is all zero.
func (t *ContentTest) SparseWriteThenTruncateBack() {
	ino := t.newIno()

	_, err := content.Write(t.db, ino, pageSize, pageSize+512, bytes.Repeat([]byte("z"), 512))
	AssertEq(nil, err)

	AssertEq(nil, content.Resize(t.db, ino, pageSize, pageSize-512))

	ExpectEq(uint64(pageSize-512), t.sizeOf(ino))

	var pageCount int
	err = t.db.QueryRow(`SELECT COUNT(*) FROM file_contents WHERE ino = ?`, ino).Scan(&pageCount)
	AssertEq(nil, err)
	ExpectEq(1, pageCount)

	got, err := content.Read(t.db, ino, pageSize, 0, pageSize-512)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(make([]byte, pageSize-512), got))
}

// resize(ino, 0) leaves zero pages, per §8's boundary behaviors.
func (t *ContentTest) ResizeToZeroLeavesNoPages() {
	ino := t.newIno()
	_, err := content.Write(t.db, ino, pageSize, 0, []byte("present"))
	AssertEq(nil, err)

	AssertEq(nil, content.Resize(t.db, ino, pageSize, 0))

	var pageCount int
	err = t.db.QueryRow(`SELECT COUNT(*) FROM file_contents WHERE ino = ?`, ino).Scan(&pageCount)
	AssertEq(nil, err)
	ExpectEq(0, pageCount)
	ExpectEq(uint64(0), t.sizeOf(ino))
}

func (t *ContentTest) ResizeWithNoExistingContentCreatesLastPage() {
	ino := t.newIno()

	AssertEq(nil, content.Resize(t.db, ino, pageSize, 100))

	ExpectEq(uint64(100), t.sizeOf(ino))
	got, err := content.Read(t.db, ino, pageSize, 0, 100)
	AssertEq(nil, err)
	ExpectTrue(bytes.Equal(make([]byte, 100), got))
}
