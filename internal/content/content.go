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

// Package content implements the paged binary content store: fixed-size
// pages keyed by (inode, page), with read, sparse write, and resize
// (truncate/extend) per §4.5.
package content

import (
	"database/sql"
	"fmt"
)

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Read returns bytes[offset:offset+size] for ino, concatenating page
// ranges. Reads past EOF, or against a file with no pages, yield a short
// (possibly empty) buffer rather than an error.
func Read(q Queryer, ino int64, pageSize int, offset int64, size int) ([]byte, error) {
	if size <= 0 || offset < 0 {
		return nil, nil
	}

	var fileSize int64
	if err := q.QueryRow(`SELECT size FROM file_attrs WHERE ino = ?`, ino).Scan(&fileSize); err != nil {
		return nil, err
	}
	if offset >= fileSize {
		return nil, nil
	}
	if offset+int64(size) > fileSize {
		size = int(fileSize - offset)
	}

	firstPage := offset / int64(pageSize)
	lastPage := (offset + int64(size) - 1) / int64(pageSize)

	rows, err := q.Query(
		`SELECT page, bytes FROM file_contents WHERE ino = ? AND page BETWEEN ? AND ? ORDER BY page ASC`,
		ino, firstPage, lastPage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fetched := make(map[int64][]byte)
	for rows.Next() {
		var page int64
		var b []byte
		if err := rows.Scan(&page, &b); err != nil {
			return nil, err
		}
		fetched[page] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Pages the resize path never materialized (the sparse gap between an
	// old and new last page when extending) read back as zeros, the same
	// as a page that was never written at all.
	end := offset + int64(size)
	out := make([]byte, 0, size)
	for page := firstPage; page <= lastPage; page++ {
		b, ok := fetched[page]
		if !ok {
			b = make([]byte, pageSize)
		} else if len(b) < pageSize {
			padded := make([]byte, pageSize)
			copy(padded, b)
			b = padded
		}

		pageStart := page * int64(pageSize)
		pageEnd := pageStart + int64(pageSize)

		lo := max64(pageStart, offset)
		hi := min64(pageEnd, end)
		if lo >= hi {
			continue
		}
		out = append(out, b[lo-pageStart:hi-pageStart]...)
	}
	return out, nil
}

// Write stores data at offset, materializing zero-filled pages for any gap
// between existing content and offset (sparse write), and returns the new
// total size in bytes. Per §4.5, existing pages are overwritten in place and
// new pages are created PS-byte zero buffers before the requested range is
// laid over them.
func Write(q Queryer, ino int64, pageSize int, offset int64, data []byte) (newSize uint64, err error) {
	if len(data) == 0 {
		return currentSize(q, ino)
	}

	oldSize, err := currentSize(q, ino)
	if err != nil {
		return 0, err
	}

	olp, _, hasContent, err := lastPage(q, ino)
	if err != nil {
		return 0, err
	}

	end := offset + int64(len(data))
	finalSize := end
	if int64(oldSize) > finalSize {
		finalSize = int64(oldSize)
	}

	firstPage := offset / int64(pageSize)
	lastPage := (end - 1) / int64(pageSize)

	// truePage/trueLen identify the file's real last page once this write
	// lands, per §3: "all but the last [page] are exactly PS bytes; the
	// last is L mod PS bytes (or PS if L is an exact multiple)".
	truePage := (finalSize - 1) / int64(pageSize)
	trueLen := int(finalSize - truePage*int64(pageSize))
	if trueLen == 0 {
		trueLen = pageSize
	}

	// The loop starts at the current last page (page 0 for a file with no
	// content) when that lies before firstPage, so the gap pages in between
	// are stored as full zero pages.
	startPage := firstPage
	if !hasContent {
		startPage = 0
	} else if olp < firstPage {
		startPage = olp
	}

	for page := startPage; page <= lastPage; page++ {
		pageStart := page * int64(pageSize)
		pageEnd := pageStart + int64(pageSize)

		lo := max64(pageStart, offset)
		hi := min64(pageEnd, end)

		existing, ok, err := getPage(q, ino, page)
		if err != nil {
			return 0, err
		}
		if !ok {
			existing = make([]byte, pageSize)
		} else if len(existing) < pageSize {
			padded := make([]byte, pageSize)
			copy(padded, existing)
			existing = padded
		}

		if lo < hi {
			copy(existing[lo-pageStart:hi-pageStart], data[lo-offset:hi-offset])
		}

		// Only the page that ends up as the file's true last page is
		// trimmed to its logical length; every other touched page (an
		// interior page of the file) is stored at full width.
		if page == truePage {
			existing = existing[:trueLen]
		}

		if err := putPage(q, ino, page, existing); err != nil {
			return 0, err
		}
	}

	return recomputeSize(q, ino)
}

// Resize truncates or extends ino to newSize, per the four cases of §4.5.
func Resize(q Queryer, ino int64, pageSize int, newSize uint64) error {
	nlp := int64(newSize) / int64(pageSize)
	nlps := int64(newSize) % int64(pageSize)

	olp, olpBytes, hasContent, err := lastPage(q, ino)
	if err != nil {
		return err
	}

	switch {
	case !hasContent:
		// Case 1: no existing content.
		if err := putPage(q, ino, nlp, make([]byte, nlps)); err != nil {
			return err
		}

	case nlp > olp:
		// Case 2: extend. Right-pad the old last page to full size, then
		// create the new last page.
		padded := make([]byte, pageSize)
		copy(padded, olpBytes)
		if err := putPage(q, ino, olp, padded); err != nil {
			return err
		}
		if err := putPage(q, ino, nlp, make([]byte, nlps)); err != nil {
			return err
		}

	case nlp < olp:
		// Case 3: truncate across a page boundary. Drop pages beyond nlp,
		// then size page nlp down to nlps (creating it if it never
		// existed, e.g. a fully sparse region).
		if _, err := q.Exec(`DELETE FROM file_contents WHERE ino = ? AND page > ?`, ino, nlp); err != nil {
			return err
		}
		existing, ok, err := getPage(q, ino, nlp)
		if err != nil {
			return err
		}
		if !ok {
			existing = make([]byte, nlps)
		} else if int64(len(existing)) > nlps {
			existing = existing[:nlps]
		} else if int64(len(existing)) < nlps {
			padded := make([]byte, nlps)
			copy(padded, existing)
			existing = padded
		}
		if err := putPage(q, ino, nlp, existing); err != nil {
			return err
		}

	default:
		// Case 4: truncate within the last page.
		existing, ok, err := getPage(q, ino, nlp)
		if err != nil {
			return err
		}
		if !ok {
			existing = make([]byte, nlps)
		} else if int64(len(existing)) > nlps {
			existing = existing[:nlps]
		}
		if err := putPage(q, ino, nlp, existing); err != nil {
			return err
		}
	}

	if newSize == 0 {
		if _, err := q.Exec(`DELETE FROM file_contents WHERE ino = ?`, ino); err != nil {
			return err
		}
	}

	// §4.5 assigns file_attrs.size = new_size directly. Case 2 (extend)
	// deliberately never materializes the gap pages strictly between the
	// old and new last page, so deriving size from SUM(LENGTH(bytes)) over
	// what's physically stored would undercount it; newSize is already
	// known exactly, so it is written through as-is.
	if _, err := q.Exec(`UPDATE file_attrs SET size = ? WHERE ino = ?`, newSize, ino); err != nil {
		return err
	}
	return touchMtime(q, ino)
}

func getPage(q Queryer, ino, page int64) ([]byte, bool, error) {
	var b []byte
	err := q.QueryRow(`SELECT bytes FROM file_contents WHERE ino = ? AND page = ?`, ino, page).Scan(&b)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func putPage(q Queryer, ino, page int64, bytes []byte) error {
	_, err := q.Exec(`
		INSERT INTO file_contents (ino, page, bytes) VALUES (?, ?, ?)
		ON CONFLICT (ino, page) DO UPDATE SET bytes = excluded.bytes`,
		ino, page, bytes)
	if err != nil {
		return fmt.Errorf("writing page %d of ino %d: %w", page, ino, err)
	}
	return nil
}

func lastPage(q Queryer, ino int64) (page int64, bytes []byte, hasContent bool, err error) {
	row := q.QueryRow(`SELECT page, bytes FROM file_contents WHERE ino = ? ORDER BY page DESC LIMIT 1`, ino)
	err = row.Scan(&page, &bytes)
	if err == sql.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return page, bytes, true, nil
}

func currentSize(q Queryer, ino int64) (uint64, error) {
	var size sql.NullInt64
	err := q.QueryRow(`SELECT SUM(LENGTH(bytes)) FROM file_contents WHERE ino = ?`, ino).Scan(&size)
	if err != nil {
		return 0, err
	}
	if !size.Valid {
		return 0, nil
	}
	return uint64(size.Int64), nil
}

// recomputeSize recomputes file_attrs.size as the sum of stored page
// lengths (invariant I2) and writes it back along with mtime.
func recomputeSize(q Queryer, ino int64) (uint64, error) {
	size, err := currentSize(q, ino)
	if err != nil {
		return 0, err
	}
	_, err = q.Exec(`UPDATE file_attrs SET size = ? WHERE ino = ?`, size, ino)
	if err != nil {
		return 0, err
	}
	if err := touchMtime(q, ino); err != nil {
		return 0, err
	}
	return size, nil
}

func touchMtime(q Queryer, ino int64) error {
	_, err := q.Exec(`UPDATE file_attrs SET mtime = strftime('%s','now') WHERE ino = ?`, ino)
	return err
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
