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

// Package perm implements the classical Unix rwx permission check. It is
// pure: given an attribute row already fetched by the caller and a request's
// credentials, it returns a yes/no answer with no I/O of its own, mirroring
// the original's req_has_ino_perm which only ever reads an in-hand row.
package perm

// Bits for the 3-bit rwx mask, matching POSIX.
const (
	Read    = 0o4
	Write   = 0o2
	Execute = 0o1
)

// Check reports whether a request from (reqUid, reqGid) may perform the
// operation named by the rwx bitmask against a file owned by
// (fileUid, fileGid) with the given 9-bit permission bits.
//
// Root (uid 0) always passes. Otherwise the owner triplet, group triplet, or
// other triplet is selected by identity, exactly once, with no fallthrough:
// a request from the owning uid is judged solely by the owner bits even if
// those bits happen to deny what the group or other bits would allow.
func Check(fileUid, fileGid uint32, filePerm uint32, reqUid, reqGid uint32, rwx uint32) bool {
	if reqUid == 0 {
		return true
	}

	var triplet uint32
	switch {
	case reqUid == fileUid:
		triplet = (filePerm >> 6) & 0o7
	case reqGid == fileGid:
		triplet = (filePerm >> 3) & 0o7
	default:
		triplet = filePerm & 0o7
	}

	return triplet&rwx == rwx
}
