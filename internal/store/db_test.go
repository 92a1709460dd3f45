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

package store_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	. "github.com/jacobsa/ogletest"
	"github.com/sirupsen/logrus"

	"github.com/arsmoriendy/htfs/internal/store"
)

func TestStore(t *testing.T) { RunTests(t) }

type StoreTest struct {
	dir string
	log *logrus.Logger
}

func init() { RegisterTestSuite(&StoreTest{}) }

func (t *StoreTest) SetUp(ti *TestInfo) {
	var err error
	t.dir, err = os.MkdirTemp("", "htfs-store-test")
	AssertEq(nil, err)

	t.log = logrus.New()
	t.log.SetOutput(io.Discard)
}

func (t *StoreTest) TearDown() {
	os.RemoveAll(t.dir)
}

func (t *StoreTest) OpenCreatesAllRelations() {
	path := filepath.Join(t.dir, "new.db")
	pool, err := store.Open(path, true, t.log)
	AssertEq(nil, err)
	defer pool.Close()

	rows, err := pool.DB.Query(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	AssertEq(nil, err)
	defer rows.Close()

	tableSet := map[string]bool{}
	for rows.Next() {
		var name string
		AssertEq(nil, rows.Scan(&name))
		tableSet[name] = true
	}

	for _, want := range []string{
		"file_attrs", "file_names", "tags",
		"associated_tags", "dir_contents", "file_contents",
	} {
		ExpectTrue(tableSet[want], "missing table %q", want)
	}
}

func (t *StoreTest) OpenIsIdempotent() {
	path := filepath.Join(t.dir, "twice.db")

	pool1, err := store.Open(path, true, t.log)
	AssertEq(nil, err)
	pool1.Close()

	pool2, err := store.Open(path, false, t.log)
	AssertEq(nil, err)
	defer pool2.Close()

	var count int
	err = pool2.DB.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&count)
	AssertEq(nil, err)
	ExpectTrue(count > 0)
}

func (t *StoreTest) PageSizeIsPositiveOnFreshDatabase() {
	path := filepath.Join(t.dir, "pagesize.db")
	pool, err := store.Open(path, true, t.log)
	AssertEq(nil, err)
	defer pool.Close()

	ExpectTrue(pool.PageSize > 0)
}

func (t *StoreTest) BootstrapInsertsRootInodeOnce() {
	path := filepath.Join(t.dir, "bootstrap.db")
	pool, err := store.Open(path, true, t.log)
	AssertEq(nil, err)
	defer pool.Close()

	AssertEq(nil, store.Bootstrap(pool.DB, 111, 222, 0o755))
	AssertEq(nil, store.Bootstrap(pool.DB, 999, 999, 0o700))

	var uid, gid int
	err = pool.DB.QueryRow(`SELECT uid, gid FROM file_attrs WHERE ino = ?`, store.RootIno).Scan(&uid, &gid)
	AssertEq(nil, err)
	ExpectEq(111, uid)
	ExpectEq(222, gid)

	var nameCount int
	err = pool.DB.QueryRow(`SELECT COUNT(*) FROM file_names WHERE ino = ?`, store.RootIno).Scan(&nameCount)
	AssertEq(nil, err)
	ExpectEq(1, nameCount)
}
