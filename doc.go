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

// Package htfs is a tag-aware user-space filesystem. Its directories come in
// two kinds: ordinary directories, which behave like conventional
// containment, and tag directories (names beginning with a configurable
// prefix, "#" by default), which behave like set-valued filters over the
// inode pool. Navigating into a chain of tag directories intersects their
// tag sets; the children visible there are the files carrying every
// ancestor tag.
//
// Files and directories live entirely in a relational store opened by the
// caller (see internal/store); htfs itself never touches a filesystem path
// other than through the database driver. The package is mounted over FUSE
// using github.com/jacobsa/fuse; see cmd/htfsmount for the entry point.
package htfs
