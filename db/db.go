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

//Package db is the gateway to the package database. Installed headers are
//stored as encoded blobs keyed by a monotonically allocated record offset;
//the package name is an indexed column beside the blob and the trigger names
//declared by each header are kept in a side table, so that the two lookups
//the state machine needs (by name, by trigger name) stay cheap. The storage schema is an implementation detail of
//this package.
package db

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/holocm/libpackageinstall/deps"
	"github.com/holocm/libpackageinstall/header"
)

const schema = `
	CREATE TABLE IF NOT EXISTS packages (
		offset     INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		installtid INTEGER NOT NULL,
		header     BLOB    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS packages_name ON packages (name);
	CREATE TABLE IF NOT EXISTS trigger_names (
		offset INTEGER NOT NULL REFERENCES packages (offset) ON DELETE CASCADE,
		name   TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS trigger_names_name ON trigger_names (name);
`

//Database is an open package database.
type Database struct {
	conn *sql.DB
}

//Open opens (and if necessary initializes) the package database at the given
//path. The path ":memory:" yields a private in-memory database.
func Open(path string) (*Database, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open package database")
	}
	//the database is accessed from a single goroutine; a second connection
	//would only ever see locking errors
	conn.SetMaxOpenConns(1)
	_, err = conn.Exec(schema)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "cannot initialize package database")
	}
	return &Database{conn: conn}, nil
}

//Close closes the database.
func (d *Database) Close() error {
	return d.conn.Close()
}

//Add appends a header to the database under the given install transaction id
//and returns the record offset allocated for it.
func (d *Database) Add(tid int32, hdr *header.Header) (uint32, error) {
	hdr.SetInt32(header.TagInstallTid, tid)
	name, _ := hdr.GetString(header.TagName)

	result, err := d.conn.Exec(
		`INSERT INTO packages (name, installtid, header) VALUES (?, ?, ?)`,
		name, tid, hdr.Encode(header.TagHeaderImmutable),
	)
	if err != nil {
		return 0, errors.Wrap(err, "cannot add header to package database")
	}
	offset, err := result.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "cannot read new record offset")
	}

	//maintain the trigger name index
	triggers, err := deps.New(hdr, header.TagTriggerName)
	if err == nil {
		seen := make(map[string]bool)
		for _, e := range triggers.Entries() {
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			_, err := d.conn.Exec(
				`INSERT INTO trigger_names (offset, name) VALUES (?, ?)`,
				offset, e.Name,
			)
			if err != nil {
				return 0, errors.Wrap(err, "cannot index trigger name")
			}
		}
	}

	return uint32(offset), nil
}

//Remove deletes the record at the given offset. The transaction id is
//recorded for diagnostics only.
func (d *Database) Remove(tid int32, offset uint32) error {
	_, err := d.conn.Exec(`DELETE FROM trigger_names WHERE offset = ?`, offset)
	if err != nil {
		return errors.Wrap(err, "cannot remove trigger name index entries")
	}
	result, err := d.conn.Exec(`DELETE FROM packages WHERE offset = ?`, offset)
	if err != nil {
		return errors.Wrap(err, "cannot remove header from package database")
	}
	count, err := result.RowsAffected()
	if err == nil && count == 0 {
		return errors.Errorf("record #%d not found (tid %d)", offset, tid)
	}
	return err
}

//CountPackages returns the number of installed packages with the given name.
func (d *Database) CountPackages(name string) (int, error) {
	var count int
	err := d.conn.QueryRow(
		`SELECT COUNT(*) FROM packages WHERE name = ?`, name,
	).Scan(&count)
	if err != nil {
		return -1, errors.Wrap(err, "cannot count packages")
	}
	return count, nil
}

//rewrite stores a modified header back into its record.
func (d *Database) rewrite(offset uint32, hdr *header.Header) error {
	_, err := d.conn.Exec(
		`UPDATE packages SET header = ? WHERE offset = ?`,
		hdr.Encode(header.TagHeaderImmutable), offset,
	)
	return errors.Wrapf(err, "cannot rewrite record #%d", offset)
}
