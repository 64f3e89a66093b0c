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

//Package fsm is the file state machine: it materializes the members of a
//package payload on disk, removes them again, or streams them back out into
//a new payload. It is driven with a mode token plus a byte stream; all
//decisions about which file gets which treatment are taken from the
//file-info bundle prepared by the caller.
package fsm

import (
	"io"
	"path/filepath"

	"github.com/pkg/errors"

	install "github.com/holocm/libpackageinstall"
)

//Mode selects what one Run invocation does.
type Mode int

//Modes.
const (
	//ModeInstall reads a CPIO stream and materializes its members.
	ModeInstall Mode = iota + 1
	//ModeErase removes the files of an installed package.
	ModeErase
	//ModeBuild streams the files of an installed package out as CPIO.
	ModeBuild
	//ModeCommit verifies that a preceding install pass left every file in
	//place.
	ModeCommit
)

//Result reports what a Run invocation did.
type Result struct {
	//ArchiveSize is the number of payload bytes consumed or produced.
	ArchiveSize uint64
	//FailedFile names the file on which a failure occurred ("" on success).
	FailedFile string
}

//Run drives the file state machine once. For ModeInstall, reader must
//deliver the decompressed payload; for ModeBuild, the produced archive is
//written to writer; the other modes take no stream.
func Run(mode Mode, ts *install.Transaction, fi *install.FileInfo, reader io.Reader, writer io.Writer) (Result, error) {
	switch mode {
	case ModeInstall:
		return runInstall(ts, fi, reader)
	case ModeErase:
		return runErase(ts, fi)
	case ModeBuild:
		return runBuild(ts, fi, writer)
	case ModeCommit:
		return runCommit(ts, fi)
	default:
		return Result{}, errors.Errorf("unknown file state machine mode %d", mode)
	}
}

//diskPath maps an installed path onto the filesystem. Before the process has
//entered the target root, the root directory is applied as a prefix; inside
//the chroot the installed path is already correct.
func diskPath(ts *install.Transaction, path string) string {
	if ts.ChrootDone() || ts.RootDir == "" || ts.RootDir == "/" {
		return filepath.Join("/", path)
	}
	return filepath.Join(ts.RootDir, path)
}

//skippable checks the per-file action table (a missing table means every
//file is processed).
func skippable(fi *install.FileInfo, idx int) bool {
	if fi.Actions == nil {
		return false
	}
	switch fi.Actions[idx] {
	case install.ActionSkip, install.ActionSkipMultilib:
		return true
	default:
		return false
	}
}
