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

package install

import (
	"os"
	"time"

	"github.com/holocm/libpackageinstall/db"
	"github.com/holocm/libpackageinstall/header"
)

//Flags modify how a transaction processes its elements.
type Flags uint32

//Transaction flags.
const (
	//FlagTest runs all stages without touching the filesystem or database.
	FlagTest Flags = 1 << iota
	//FlagJustDB updates the database but materializes no files.
	FlagJustDB
	//FlagApplyOnly suppresses database record removal and replaced-file
	//bookkeeping.
	FlagApplyOnly
	//FlagMultilib folds the file lists of coexisting architecture variants
	//into one database record.
	FlagMultilib
	//FlagPkgCommit runs a separate commit pass over materialized files.
	FlagPkgCommit
	//FlagRepackage is carried for callers; the state machine does not read
	//it, so an erasure saves no repackaged copy unless GoalRepackage is run.
	FlagRepackage
	FlagNoPre
	FlagNoPost
	FlagNoPreun
	FlagNoPostun
	FlagNoTriggerPrein
	FlagNoTriggerIn
	FlagNoTriggerUn
	FlagNoTriggerPostun
)

//CallbackWhat enumerates the progress notifications emitted while a package
//is processed.
type CallbackWhat int

//Notification codes.
const (
	CallbackInstStart CallbackWhat = iota + 1
	CallbackInstProgress
	CallbackUninstStart
	CallbackUninstStop
	CallbackUnpackError
	CallbackCpioError
)

//NotifyFunc consumes progress notifications. Implementations may run
//synchronously but must not mutate the state machine that emitted the
//notification.
type NotifyFunc func(el *Element, what CallbackWhat, amount, total uint64)

//Element is one package inside a transaction.
type Element struct {
	Header   *header.Header
	FileInfo *FileInfo
	//Fd is the open package file for install operations, positioned at the
	//start of the compressed payload. It stays nil for erase and repackage.
	Fd *os.File
}

//Name returns the package name of this element.
func (el *Element) Name() string {
	name, _ := el.Header.GetString(header.TagName)
	return name
}

//NEVR identifies this element's package for diagnostics.
func (el *Element) NEVR() string {
	return el.Header.NEVR()
}

//Transaction carries the shared state for processing a set of packages. The
//ordering of elements, dependency resolution and problem reporting belong to
//the caller; the state machine only consumes what is recorded here.
type Transaction struct {
	//RootDir is the directory that installations chroot into ("/" or "" for
	//none).
	RootDir string
	//UseChroot makes the process (and its scriptlet children) actually
	//chroot into RootDir. Without it, files are materialized below the
	//RootDir prefix instead, which also works without privileges.
	UseChroot bool
	//CurrDir is restored as working directory after leaving the chroot.
	CurrDir string
	//ID is the transaction id stamped into added records and, as the removal
	//id, into repackaged headers.
	ID int32
	//Flags modify processing, see Flags.
	Flags Flags
	//DB is the open package database.
	DB *db.Database
	//ScriptOutput receives stdout/stderr of scriptlets when set.
	ScriptOutput *os.File
	//Notify receives progress notifications when set.
	Notify NotifyFunc

	elements   []*Element
	chrootDone bool
}

//NewTransaction prepares a transaction against the given root directory and
//database. The transaction id is taken from the wall clock, so ids are
//monotonic across processes.
func NewTransaction(rootDir string, database *db.Database) *Transaction {
	currDir, err := os.Getwd()
	if err != nil {
		currDir = "/"
	}
	return &Transaction{
		RootDir: rootDir,
		CurrDir: currDir,
		ID:      int32(time.Now().Unix()),
		DB:      database,
	}
}

//AddElement appends a package to this transaction and builds its file-info
//bundle. fd may be nil for erase and repackage elements.
func (ts *Transaction) AddElement(hdr *header.Header, fd *os.File) (*Element, error) {
	fi, err := NewFileInfo(hdr)
	if err != nil {
		return nil, err
	}
	el := &Element{Header: hdr, FileInfo: fi, Fd: fd}
	ts.elements = append(ts.elements, el)
	return el, nil
}

//Elements returns the elements in processing order.
func (ts *Transaction) Elements() []*Element {
	return ts.elements
}

//ChrootDone reports whether the process has already entered the target root.
func (ts *Transaction) ChrootDone() bool {
	return ts.chrootDone
}

//SetChrootDone records whether the process is inside the target root.
func (ts *Transaction) SetChrootDone(done bool) {
	ts.chrootDone = done
}

//NotifyElement emits a progress notification if a callback is registered.
func (ts *Transaction) NotifyElement(el *Element, what CallbackWhat, amount, total uint64) {
	if ts.Notify != nil {
		ts.Notify(el, what, amount, total)
	}
}
