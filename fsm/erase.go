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

package fsm

import (
	"os"

	"github.com/pkg/errors"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//runErase removes the files of a package in reverse order, so that the
//contents of a directory go away before the directory itself. Files that are
//already gone and directories still used by other packages are not errors.
func runErase(ts *install.Transaction, fi *install.FileInfo) (Result, error) {
	result := Result{}

	for idx := fi.FC() - 1; idx >= 0; idx-- {
		if skippable(fi, idx) {
			continue
		}
		//files that another package has replaced are no longer ours to
		//remove
		if fi.States != nil && fi.States[idx] == header.FileStateReplaced {
			continue
		}

		target := diskPath(ts, fi.Path(idx))
		mode := uint16(0)
		if idx < len(fi.Modes) {
			mode = fi.Modes[idx]
		}

		err := os.Remove(target)
		if err == nil || os.IsNotExist(err) {
			continue
		}
		if mode&modeTypeMask == modeDir {
			//a shared directory may legitimately still have contents
			continue
		}
		result.FailedFile = fi.Path(idx)
		return result, errors.Wrap(err, "cannot remove file")
	}

	return result, nil
}

//runCommit verifies that every file a preceding install pass was supposed to
//materialize is present on disk.
func runCommit(ts *install.Transaction, fi *install.FileInfo) (Result, error) {
	result := Result{}

	for idx := 0; idx < fi.FC(); idx++ {
		if skippable(fi, idx) {
			continue
		}
		target := diskPath(ts, fi.Path(idx))
		_, err := os.Lstat(target)
		if err != nil {
			result.FailedFile = fi.Path(idx)
			return result, errors.Wrap(err, "file missing after install")
		}
	}

	return result, nil
}
