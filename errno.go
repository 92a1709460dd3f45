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
	"database/sql"
	"errors"
	"syscall"

	"github.com/arsmoriendy/htfs/internal/names"
)

// Sentinel semantic errors, mapped to errno by toErrno. These cover the
// cases §4.6 and §4.7 name that aren't simply "row not found" or "SQL
// exploded": tag redundancy, non-empty rmdir, disallowed kind, and
// forbidden tag/ordinary reprefixing on rename.
var (
	ErrTagRedundant    = errors.New("htfs: tag already present on parent's ancestor chain")
	ErrNotEmpty        = errors.New("htfs: directory not empty")
	ErrUnsupportedKind = errors.New("htfs: unsupported inode kind")
	ErrReprefix        = errors.New("htfs: cannot change tag-prefix-ness of a directory via rename")
)

// toErrno maps an error from an engine operation to the POSIX errno the
// kernel expects, per §7's five error kinds. Any error that isn't one of
// the recognized sentinels or sql.ErrNoRows is a Storage error: EIO,
// logged by the caller with the underlying message.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, sql.ErrNoRows):
		return syscall.ENOENT
	case errors.Is(err, names.ErrAmbiguous):
		return syscall.ENOENT
	case errors.Is(err, ErrTagRedundant):
		return syscall.EEXIST
	case errors.Is(err, ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, ErrUnsupportedKind):
		return syscall.ENOSYS
	case errors.Is(err, ErrReprefix):
		return syscall.EINVAL
	case errors.Is(err, errPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, errConversionOverflow):
		return syscall.ERANGE
	default:
		return syscall.EIO
	}
}

var (
	errPermissionDenied   = errors.New("htfs: permission denied")
	errConversionOverflow = errors.New("htfs: numeric conversion overflow")
	errNoSuchEntry        = sql.ErrNoRows
)
