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
	"strings"

	"github.com/holocm/libpackageinstall/header"
)

//FileAction tells the file state machine what to do with one file.
type FileAction int

//Per-file actions.
const (
	ActionUnknown FileAction = iota
	//ActionCreate materializes the file from the archive.
	ActionCreate
	//ActionBackup materializes the file, renaming a previous on-disk copy.
	ActionBackup
	//ActionSkip leaves the file alone.
	ActionSkip
	//ActionSkipMultilib leaves the file to the other architecture variant.
	ActionSkipMultilib
	//ActionCopyOut streams the on-disk file into an output archive.
	ActionCopyOut
	//ActionErase removes the file from disk.
	ActionErase
)

//FileState is the per-file state recorded in the database, see the
//header.FileState constants.
type FileState = byte

//MapFlags select which archive attributes are overridden from the file-info
//bundle during materialization.
type MapFlags uint32

//Map flag bits.
const (
	MapPath MapFlags = 1 << iota
	MapMode
	MapUID
	MapGID
)

//SharedFileInfo records that a file of this package overwrites a file owned
//by another installed package.
type SharedFileInfo struct {
	//OtherOffset is the database record offset of the other package.
	OtherOffset uint32
	//OtherFileNum is the index of the overwritten file in the other
	//package's file arrays.
	OtherFileNum int
}

//FileInfo is the per-package working state for file materialization: the
//parallel per-file arrays pulled from the header, plus the bookkeeping that
//the state machine fills in while the package is processed. All per-file
//slices share the same length.
type FileInfo struct {
	Basenames  []string
	DirIndexes []int32
	//DirNames is the directory table referenced by DirIndexes. Every name
	//carries a trailing slash.
	DirNames []string
	Modes    []uint16
	Sizes    []uint32
	Mtimes   []int32
	Digests  []string
	Linktos  []string
	Flags    []int32
	Users    []string
	Groups   []string

	//UIDs/GIDs are the resolved numeric owners (filled in by the process
	//stage; lazily allocated).
	UIDs []int
	GIDs []int
	//Actions is the per-file action table (lazily allocated).
	Actions []FileAction
	//States is the per-file state table written into the database record
	//(lazily allocated).
	States []FileState

	//ArchivePaths are the member names expected in the package payload.
	ArchivePaths []string
	//StripLen is the number of leading path bytes to drop when mapping
	//archive member names onto ArchivePaths.
	StripLen int
	//MapFlags are the default attribute overrides for the file state
	//machine.
	MapFlags MapFlags

	//Replaced lists files of other packages that this installation
	//overwrites, ordered by the other package's record offset.
	Replaced []SharedFileInfo
	//UID/GID are the default owners for files that carry no user or group
	//name; a name that cannot be resolved maps to root instead.
	UID int
	GID int
	//Record is the database offset this header was loaded from (zero if the
	//header came from a package file).
	Record uint32
	//ArchiveSize is the uncompressed payload size from the header (zero if
	//unknown).
	ArchiveSize uint32
}

//NewFileInfo extracts the per-file arrays from a header. A header without
//file entries yields an empty bundle.
func NewFileInfo(hdr *header.Header) (*FileInfo, error) {
	fi := &FileInfo{}

	fi.Basenames, _ = hdr.GetStringArray(header.TagBasenames)
	fi.DirIndexes, _ = hdr.GetInt32Array(header.TagDirIndexes)
	fi.DirNames, _ = hdr.GetStringArray(header.TagDirNames)
	if fi.Basenames == nil {
		//old format packages (and source packages) store flat path lists
		if names, ok := hdr.GetStringArray(header.TagOldFileNames); ok {
			fi.Basenames = make([]string, len(names))
			fi.DirIndexes = make([]int32, len(names))
			for idx, name := range names {
				cut := strings.LastIndex(name, "/") + 1
				var dirIdx int
				fi.DirNames, dirIdx = findOrAppend(fi.DirNames, name[:cut])
				fi.Basenames[idx] = name[cut:]
				fi.DirIndexes[idx] = int32(dirIdx)
			}
		}
	}
	fi.Modes, _ = hdr.GetInt16ArrayAsUint16(header.TagFileModes)
	fi.Sizes, _ = hdr.GetInt32ArrayAsUint32(header.TagFileSizes)
	fi.Mtimes, _ = hdr.GetInt32Array(header.TagFileMtimes)
	fi.Digests, _ = hdr.GetStringArray(header.TagFileMD5s)
	fi.Linktos, _ = hdr.GetStringArray(header.TagFileLinktos)
	fi.Flags, _ = hdr.GetInt32Array(header.TagFileFlags)
	fi.Users, _ = hdr.GetStringArray(header.TagFileUserName)
	fi.Groups, _ = hdr.GetStringArray(header.TagFileGroupName)

	if states, ok := hdr.GetChars(header.TagFileStates); ok {
		fi.States = append([]FileState(nil), states...)
	}

	if size, ok := hdr.GetInt32(header.TagArchiveSize); ok {
		fi.ArchiveSize = uint32(size)
	}

	ec := errorCollector{}
	fc := len(fi.Basenames)
	checkLen := func(name string, actual int) {
		if actual != 0 && actual != fc {
			ec.Addf("file array %s has %d entries, expected %d", name, actual, fc)
		}
	}
	checkLen("dirindexes", len(fi.DirIndexes))
	checkLen("modes", len(fi.Modes))
	checkLen("sizes", len(fi.Sizes))
	checkLen("users", len(fi.Users))
	checkLen("groups", len(fi.Groups))
	for _, dirIdx := range fi.DirIndexes {
		if int(dirIdx) < 0 || int(dirIdx) >= len(fi.DirNames) {
			ec.Addf("directory index %d outside of directory table (%d entries)", dirIdx, len(fi.DirNames))
			break
		}
	}

	return fi, ec.Collapse()
}

//FC returns the number of files in this bundle.
func (fi *FileInfo) FC() int {
	return len(fi.Basenames)
}

//Path assembles the installed path of the idx-th file.
func (fi *FileInfo) Path(idx int) string {
	return fi.DirNames[fi.DirIndexes[idx]] + fi.Basenames[idx]
}

//EnsureStates allocates the per-file state table if missing, with all files
//in the normal state.
func (fi *FileInfo) EnsureStates() {
	if fi.States == nil && fi.FC() > 0 {
		fi.States = make([]FileState, fi.FC())
		for idx := range fi.States {
			fi.States[idx] = header.FileStateNormal
		}
	}
}

//EnsureOwners allocates the resolved uid/gid tables if missing, prefilled
//with the fallback owner.
func (fi *FileInfo) EnsureOwners() {
	if fi.UIDs == nil && fi.FC() > 0 {
		fi.UIDs = make([]int, fi.FC())
		fi.GIDs = make([]int, fi.FC())
		for idx := range fi.UIDs {
			fi.UIDs[idx] = fi.UID
			fi.GIDs[idx] = fi.GID
		}
	}
}

//EnsureActions allocates the per-file action table if missing, with all
//files set to the given action.
func (fi *FileInfo) EnsureActions(action FileAction) {
	if fi.Actions == nil && fi.FC() > 0 {
		fi.Actions = make([]FileAction, fi.FC())
		for idx := range fi.Actions {
			fi.Actions[idx] = action
		}
	}
}

//BuildArchivePaths computes the payload member names for all files. Old
//format relocateable packages store them under TagOrigBasenames.
func (fi *FileInfo) BuildArchivePaths(hdr *header.Header) {
	basenames := fi.Basenames
	dirIndexes := fi.DirIndexes
	dirNames := fi.DirNames
	if hdr.Has(header.TagOrigBasenames) {
		if names, ok := hdr.GetStringArray(header.TagOrigBasenames); ok {
			basenames = names
		}
		if indexes, ok := hdr.GetInt32Array(header.TagOrigDirIndexes); ok {
			dirIndexes = indexes
		}
		if names, ok := hdr.GetStringArray(header.TagOrigDirNames); ok {
			dirNames = names
		}
	}

	fi.ArchivePaths = make([]string, len(basenames))
	for idx := range basenames {
		path := dirNames[dirIndexes[idx]] + basenames[idx]
		if fi.StripLen > 0 && len(path) >= fi.StripLen {
			path = path[fi.StripLen:]
		} else {
			path = strings.TrimPrefix(path, "/")
		}
		fi.ArchivePaths[idx] = path
	}
}

//findOrAppend returns the index of value in list, appending it if missing.
func findOrAppend(list []string, value string) (newList []string, position int) {
	for idx, elem := range list {
		if elem == value {
			return list, idx
		}
	}
	return append(list, value), len(list)
}

//ArchiveIndex finds the file whose payload member name matches the given
//archive path (with any "./" prefix already removed). Returns -1 if the path
//does not belong to this package.
func (fi *FileInfo) ArchiveIndex(path string) int {
	for idx, apath := range fi.ArchivePaths {
		if apath == path {
			return idx
		}
	}
	return -1
}
