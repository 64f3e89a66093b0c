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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocm/libpackageinstall/header"
)

func fileHeader() *header.Header {
	hdr := header.New()
	hdr.SetString(header.TagName, "a")
	hdr.SetString(header.TagVersion, "1")
	hdr.SetString(header.TagRelease, "1")
	hdr.SetStringArray(header.TagBasenames, []string{"a", "a.conf"})
	hdr.SetInt32Array(header.TagDirIndexes, []int32{0, 1})
	hdr.SetStringArray(header.TagDirNames, []string{"/usr/bin/", "/etc/"})
	hdr.SetInt16Array(header.TagFileModes, []int16{-32275 /* 0100755 */, -32348 /* 0100644 */})
	hdr.SetInt32Array(header.TagFileSizes, []int32{5, 4})
	hdr.SetStringArray(header.TagFileUserName, []string{"root", "root"})
	hdr.SetStringArray(header.TagFileGroupName, []string{"root", "root"})
	return hdr
}

func TestNewFileInfo(t *testing.T) {
	fi, err := NewFileInfo(fileHeader())
	require.NoError(t, err)

	assert.Equal(t, 2, fi.FC())
	assert.Equal(t, "/usr/bin/a", fi.Path(0))
	assert.Equal(t, "/etc/a.conf", fi.Path(1))
	assert.Equal(t, []uint16{0o100755, 0o100644}, fi.Modes)
	assert.Equal(t, []uint32{5, 4}, fi.Sizes)
}

func TestNewFileInfoEmptyHeader(t *testing.T) {
	fi, err := NewFileInfo(header.New())
	require.NoError(t, err)
	assert.Equal(t, 0, fi.FC())
}

func TestNewFileInfoFlatNames(t *testing.T) {
	hdr := header.New()
	hdr.SetStringArray(header.TagOldFileNames, []string{"foo.spec", "sub/foo.tar.gz"})

	fi, err := NewFileInfo(hdr)
	require.NoError(t, err)
	assert.Equal(t, 2, fi.FC())
	assert.Equal(t, "foo.spec", fi.Path(0))
	assert.Equal(t, "sub/foo.tar.gz", fi.Path(1))
}

func TestNewFileInfoRejectsLengthMismatch(t *testing.T) {
	hdr := fileHeader()
	hdr.SetInt32Array(header.TagFileSizes, []int32{5})
	_, err := NewFileInfo(hdr)
	assert.Error(t, err)
}

func TestNewFileInfoRejectsBadDirIndex(t *testing.T) {
	hdr := fileHeader()
	hdr.SetInt32Array(header.TagDirIndexes, []int32{0, 7})
	_, err := NewFileInfo(hdr)
	assert.Error(t, err)
}

func TestBuildArchivePaths(t *testing.T) {
	fi, err := NewFileInfo(fileHeader())
	require.NoError(t, err)

	//binary packages lose the leading slash
	fi.StripLen = 1
	fi.BuildArchivePaths(fileHeader())
	assert.Equal(t, []string{"usr/bin/a", "etc/a.conf"}, fi.ArchivePaths)

	assert.Equal(t, 0, fi.ArchiveIndex("usr/bin/a"))
	assert.Equal(t, 1, fi.ArchiveIndex("etc/a.conf"))
	assert.Equal(t, -1, fi.ArchiveIndex("usr/bin/b"))
}

func TestBuildArchivePathsOrigNames(t *testing.T) {
	hdr := fileHeader()
	//relocated packages keep their original paths for the payload
	hdr.SetStringArray(header.TagOrigBasenames, []string{"a", "a.conf"})
	hdr.SetInt32Array(header.TagOrigDirIndexes, []int32{0, 0})
	hdr.SetStringArray(header.TagOrigDirNames, []string{"/opt/old/"})

	fi, err := NewFileInfo(hdr)
	require.NoError(t, err)
	fi.StripLen = 1
	fi.BuildArchivePaths(hdr)
	assert.Equal(t, []string{"opt/old/a", "opt/old/a.conf"}, fi.ArchivePaths)
}

func TestEnsureTables(t *testing.T) {
	fi, err := NewFileInfo(fileHeader())
	require.NoError(t, err)

	assert.Nil(t, fi.States)
	fi.EnsureStates()
	assert.Equal(t, []FileState{header.FileStateNormal, header.FileStateNormal}, fi.States)

	fi.UID = 42
	fi.GID = 43
	fi.EnsureOwners()
	assert.Equal(t, []int{42, 42}, fi.UIDs)
	assert.Equal(t, []int{43, 43}, fi.GIDs)

	fi.EnsureActions(ActionCreate)
	assert.Equal(t, []FileAction{ActionCreate, ActionCreate}, fi.Actions)

	//allocation is lazy: a second call does not overwrite
	fi.States[0] = header.FileStateReplaced
	fi.EnsureStates()
	assert.Equal(t, FileState(header.FileStateReplaced), fi.States[0])
}

func TestFileInfoStatesFromHeader(t *testing.T) {
	hdr := fileHeader()
	hdr.SetChars(header.TagFileStates, []byte{header.FileStateNormal, header.FileStateReplaced})

	fi, err := NewFileInfo(hdr)
	require.NoError(t, err)
	assert.Equal(t, []FileState{header.FileStateNormal, header.FileStateReplaced}, fi.States)
}
