/*******************************************************************************
*
* Copyright 2015-2018 Stefan Majewsky <majewsky@gmx.net>
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

package db

import (
	"github.com/pkg/errors"

	"github.com/holocm/libpackageinstall/header"
)

//record is one prefetched row of an iterator.
type record struct {
	offset   uint32
	hdr      *header.Header
	modified bool
}

//Iterator walks over a finite set of database records. It is not
//restartable: once Next has returned nil, only Close may be called. A record
//marked with SetModified is rewritten when the iterator is closed.
type Iterator struct {
	db      *Database
	records []record
	//pos is the index of the record most recently returned by Next
	pos     int
	filters []func(*header.Header) bool
	fetched bool
	err     error
}

func (d *Database) newIterator(query string, args ...interface{}) *Iterator {
	it := &Iterator{db: d, pos: -1}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		it.err = errors.Wrap(err, "cannot query package database")
		return it
	}
	defer rows.Close()

	for rows.Next() {
		var (
			offset uint32
			blob   []byte
		)
		err := rows.Scan(&offset, &blob)
		if err != nil {
			it.err = errors.Wrap(err, "cannot scan record")
			return it
		}
		hdr, err := header.Decode(blob)
		if err != nil {
			it.err = errors.Wrapf(err, "cannot decode record #%d", offset)
			return it
		}
		it.records = append(it.records, record{offset: offset, hdr: hdr})
	}
	it.err = errors.Wrap(rows.Err(), "cannot iterate package database")

	return it
}

//ByOffset returns an iterator over the single record at the given offset.
func (d *Database) ByOffset(offset uint32) *Iterator {
	return d.newIterator(
		`SELECT offset, header FROM packages WHERE offset = ?`, offset)
}

//ByName returns an iterator over the records whose package name matches.
func (d *Database) ByName(name string) *Iterator {
	return d.newIterator(
		`SELECT offset, header FROM packages WHERE name = ? ORDER BY offset`, name)
}

//ByTriggerName returns an iterator over the records that declare a trigger
//on the given package name.
func (d *Database) ByTriggerName(name string) *Iterator {
	return d.newIterator(
		`SELECT p.offset, p.header FROM packages p
		 JOIN trigger_names t ON t.offset = p.offset
		 WHERE t.name = ? ORDER BY p.offset`, name)
}

//ByOffsets returns an iterator over the records at the given offsets, in the
//given order. Unknown offsets are skipped.
func (d *Database) ByOffsets(offsets []uint32) *Iterator {
	it := &Iterator{db: d, pos: -1}
	for _, offset := range offsets {
		sub := d.ByOffset(offset)
		if sub.err != nil {
			it.err = sub.err
			break
		}
		it.records = append(it.records, sub.records...)
	}
	return it
}

//AddFilter restricts the iterator to records where the given string tag has
//exactly the given value. Filters must be added before the first call to
//Next.
func (it *Iterator) AddFilter(tag header.Tag, value string) {
	it.filters = append(it.filters, func(hdr *header.Header) bool {
		actual, _ := hdr.GetString(tag)
		return actual == value
	})
}

func (it *Iterator) applyFilters() {
	if it.fetched {
		return
	}
	it.fetched = true
	if len(it.filters) == 0 {
		return
	}
	filtered := it.records[:0]
	for _, rec := range it.records {
		ok := true
		for _, accept := range it.filters {
			if !accept(rec.hdr) {
				ok = false
				break
			}
		}
		if ok {
			filtered = append(filtered, rec)
		}
	}
	it.records = filtered
}

//Next returns the next matching header, or nil when the set is exhausted.
//The returned header stays usable until the iterator is closed; if it is
//modified, call SetModified to have the record rewritten on Close.
func (it *Iterator) Next() *header.Header {
	if it.err != nil {
		return nil
	}
	it.applyFilters()
	if it.pos+1 >= len(it.records) {
		return nil
	}
	it.pos++
	return it.records[it.pos].hdr
}

//Offset returns the record offset of the header most recently returned by
//Next.
func (it *Iterator) Offset() uint32 {
	if it.pos < 0 || it.pos >= len(it.records) {
		return 0
	}
	return it.records[it.pos].offset
}

//Count returns the number of records matched by this iterator.
func (it *Iterator) Count() int {
	it.applyFilters()
	return len(it.records)
}

//SetModified marks the current record for rewrite on Close.
func (it *Iterator) SetModified() {
	if it.pos >= 0 && it.pos < len(it.records) {
		it.records[it.pos].modified = true
	}
}

//Err reports a query or decode failure encountered while building the
//iterator.
func (it *Iterator) Err() error {
	return it.err
}

//Close releases the iterator and rewrites all records marked as modified.
func (it *Iterator) Close() error {
	var firstErr error
	for _, rec := range it.records {
		if rec.modified {
			err := it.db.rewrite(rec.offset, rec.hdr)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	it.records = nil
	return firstErr
}
