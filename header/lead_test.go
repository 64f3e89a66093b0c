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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadRoundTrip(t *testing.T) {
	lead := NewLead("sample-1.2-3", LeadTypeBinary, 1, 1)

	var buf bytes.Buffer
	require.NoError(t, lead.WriteTo(&buf))
	//the lead is a fixed 96-byte structure
	assert.Equal(t, 96, buf.Len())

	read, err := ReadLead(&buf)
	require.NoError(t, err)
	assert.Equal(t, "sample-1.2-3", read.Name())
	assert.False(t, read.IsSource())
	assert.Equal(t, LeadSignatureHeader, read.SignatureType)
}

func TestLeadNameTruncation(t *testing.T) {
	longName := strings.Repeat("x", 100)
	lead := NewLead(longName, LeadTypeSource, 0, 1)
	assert.Equal(t, 65, len(lead.Name()))
	assert.True(t, lead.IsSource())
	//the name field stays NUL-terminated
	assert.Equal(t, byte(0), lead.NameVersionRelease[65])
}

func TestReadLeadRejectsGarbage(t *testing.T) {
	_, err := ReadLead(bytes.NewReader(make([]byte, 96)))
	assert.Error(t, err)
}

func TestSignatureRoundTrip(t *testing.T) {
	hdr := sampleHeader()
	hdr.SetInt32(TagArchiveSize, 4096)
	encoded := hdr.Encode(TagHeaderImmutable)

	sig := RegenerateSignature(hdr, encoded)
	sha1sum, ok := sig.GetString(TagSigSHA1)
	require.True(t, ok)
	assert.Len(t, sha1sum, 40)
	payloadSize, ok := sig.GetInt32(TagSigPayloadSize)
	require.True(t, ok)
	assert.Equal(t, int32(4096), payloadSize)
	//the MD5 merged at install time is carried over verbatim
	md5sum, ok := sig.GetBin(TagSigMD5)
	require.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, md5sum)

	//the encoded signature section is padded for the 8-byte alignment of
	//the following section
	buf := EncodeSignature(sig)
	assert.Equal(t, 0, len(buf)%8)
}

func TestReadPackage(t *testing.T) {
	hdr := sampleHeader()
	encoded := hdr.Encode(TagHeaderImmutable)
	sig := RegenerateSignature(hdr, encoded)

	var buf bytes.Buffer
	require.NoError(t, NewLead("sample-1.2-3", LeadTypeBinary, 1, 1).WriteTo(&buf))
	buf.Write(EncodeSignature(sig))
	buf.Write(encoded)
	payload := []byte("payload bytes follow the header sections")
	buf.Write(payload)

	pkg, err := ReadPackage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "sample-1.2-3", pkg.Lead.Name())

	name, _ := pkg.Header.GetString(TagName)
	assert.Equal(t, "sample", name)

	//the durable signature values are merged into the metadata header
	sha1A, _ := pkg.Signature.GetString(TagSigSHA1)
	sha1B, ok := pkg.Header.GetString(TagSigSHA1)
	require.True(t, ok)
	assert.Equal(t, sha1A, sha1B)

	//the reader is left at the start of the payload
	rest := buf.Bytes()
	assert.Equal(t, payload, rest)
}
