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

package psm

import (
	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//markReplacedFiles flips the file state of every file that this installation
//overwrote in another package's record to "replaced". The replaced list is
//ordered by record offset, so each touched record is visited and rewritten
//exactly once.
func (m *Machine) markReplacedFiles() error {
	fi := m.fi
	if fi.FC() <= 0 || len(fi.Replaced) == 0 {
		return nil
	}

	//collect the distinct record offsets
	var offsets []uint32
	var prev uint32
	for _, shared := range fi.Replaced {
		if shared.OtherOffset == 0 || shared.OtherOffset == prev {
			continue
		}
		prev = shared.OtherOffset
		offsets = append(offsets, shared.OtherOffset)
	}
	if len(offsets) == 0 {
		return nil
	}

	it := m.ts.DB.ByOffsets(offsets)
	if err := it.Err(); err != nil {
		it.Close()
		return install.WrapError(install.CodeDBFail, err, "cannot load replaced records")
	}

	pos := 0
	for hdr := it.Next(); hdr != nil; hdr = it.Next() {
		states, ok := hdr.GetChars(header.TagFileStates)
		if !ok {
			//skip the shared entries pointing at this record
			for pos < len(fi.Replaced) && fi.Replaced[pos].OtherOffset == it.Offset() {
				pos++
			}
			continue
		}

		for pos < len(fi.Replaced) && fi.Replaced[pos].OtherOffset == it.Offset() {
			shared := fi.Replaced[pos]
			pos++
			if shared.OtherFileNum >= len(states) {
				continue
			}
			if states[shared.OtherFileNum] != header.FileStateReplaced {
				states[shared.OtherFileNum] = header.FileStateReplaced
				//modified records are rewritten when the iterator closes
				it.SetModified()
			}
		}
		hdr.SetChars(header.TagFileStates, states)
	}

	err := it.Close()
	if err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot rewrite replaced records")
	}
	return nil
}
