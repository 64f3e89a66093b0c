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

package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader() *Header {
	hdr := New()
	hdr.SetString(TagName, "sample")
	hdr.SetString(TagVersion, "1.2")
	hdr.SetString(TagRelease, "3")
	hdr.SetInt32(TagSize, 12345)
	hdr.SetStringArray(TagBasenames, []string{"sample", "sample.conf"})
	hdr.SetInt32Array(TagDirIndexes, []int32{0, 1})
	hdr.SetStringArray(TagDirNames, []string{"/usr/bin/", "/etc/"})
	hdr.SetInt16Array(TagFileModes, []int16{-32275 /* 0100755 */, -32348 /* 0100644 */})
	hdr.SetChars(TagFileStates, []byte{FileStateNormal, FileStateNormal})
	hdr.SetBin(TagSigMD5Stored, []byte{0xde, 0xad, 0xbe, 0xef})
	return hdr
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hdr := sampleHeader()

	decoded, err := Decode(hdr.Encode(TagHeaderImmutable))
	require.NoError(t, err)

	name, ok := decoded.GetString(TagName)
	require.True(t, ok)
	assert.Equal(t, "sample", name)

	size, ok := decoded.GetInt32(TagSize)
	require.True(t, ok)
	assert.Equal(t, int32(12345), size)

	basenames, ok := decoded.GetStringArray(TagBasenames)
	require.True(t, ok)
	assert.Equal(t, []string{"sample", "sample.conf"}, basenames)

	dirIndexes, ok := decoded.GetInt32Array(TagDirIndexes)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1}, dirIndexes)

	modes, ok := decoded.GetInt16ArrayAsUint16(TagFileModes)
	require.True(t, ok)
	assert.Equal(t, []uint16{0o100755, 0o100644}, modes)

	states, ok := decoded.GetChars(TagFileStates)
	require.True(t, ok)
	assert.Equal(t, []byte{FileStateNormal, FileStateNormal}, states)

	md5sum, ok := decoded.GetBin(TagSigMD5Stored)
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, md5sum)

	//the decoded header keeps the full section image under the region tag
	image, ok := decoded.GetBin(TagHeaderImmutable)
	require.True(t, ok)
	reloaded, err := Decode(image)
	require.NoError(t, err)
	name, _ = reloaded.GetString(TagName)
	assert.Equal(t, "sample", name)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01, 0x02, 0x03})
	assert.Error(t, err)
	_, err = Decode([]byte("definitely not a header structure at all......"))
	assert.Error(t, err)
}

func TestSetReplacesValue(t *testing.T) {
	hdr := New()
	hdr.SetString(TagName, "old")
	hdr.SetString(TagName, "new")
	name, _ := hdr.GetString(TagName)
	assert.Equal(t, "new", name)

	decoded, err := Decode(hdr.Encode(TagHeaderImmutable))
	require.NoError(t, err)
	name, _ = decoded.GetString(TagName)
	assert.Equal(t, "new", name)
}

func TestCopyIsDeep(t *testing.T) {
	hdr := sampleHeader()
	clone := hdr.Copy()

	basenames, _ := clone.GetStringArray(TagBasenames)
	basenames[0] = "mutated"
	original, _ := hdr.GetStringArray(TagBasenames)
	assert.Equal(t, "sample", original[0])
}

func TestNEVR(t *testing.T) {
	hdr := sampleHeader()
	assert.Equal(t, "sample-1.2-3", hdr.NEVR())
	hdr.SetInt32(TagEpoch, 2)
	assert.Equal(t, "sample-2:1.2-3", hdr.NEVR())
}

func TestFileCount(t *testing.T) {
	hdr := sampleHeader()
	assert.Equal(t, 2, hdr.FileCount())

	flat := New()
	flat.SetStringArray(TagOldFileNames, []string{"a.spec", "a.tar.gz", "b.patch"})
	assert.Equal(t, 3, flat.FileCount())

	assert.Equal(t, 0, New().FileCount())
}

func TestDelete(t *testing.T) {
	hdr := sampleHeader()
	hdr.Delete(TagSize)
	assert.False(t, hdr.Has(TagSize))
	assert.True(t, hdr.Has(TagName))
}
