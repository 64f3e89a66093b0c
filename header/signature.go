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
	"crypto/sha1"
	"encoding/hex"
)

//Metadata-side homes for signature values. The signature section reuses tag
//numbers that mean something else in the metadata section (1000 is SIZE there
//but NAME here), so merged signature values move to the 256+ range.
const (
	TagSigSizeStored Tag = 257 //type: INT32
	TagSigMD5Stored  Tag = 261 //type: BIN
)

//MergeSignature copies the durable parts of a package's signature section
//into the metadata header, so that they survive in the database and can be
//used to regenerate a signature section on repackage.
func MergeSignature(hdr *Header, sig *Header) {
	if size, ok := sig.GetInt32(TagSigSize); ok {
		hdr.SetInt32(TagSigSizeStored, size)
	}
	if md5sum, ok := sig.GetBin(TagSigMD5); ok {
		hdr.SetBin(TagSigMD5Stored, md5sum)
	}
	if sha1sum, ok := sig.GetString(TagSigSHA1); ok {
		hdr.SetString(TagSigSHA1, sha1sum)
	}
}

//RegenerateSignature builds a signature section for a repackaged copy of the
//given header. encodedSection must be the binary encoding of the metadata
//section that will be written after the signature. Digests that can only be
//computed over the original payload are carried over from the values merged
//at install time; the header SHA1 is computed fresh since the regenerated
//section differs from the originally signed one.
func RegenerateSignature(hdr *Header, encodedSection []byte) *Header {
	sig := New()

	size := int32(len(encodedSection))
	if stored, ok := hdr.GetInt32(TagSigSizeStored); ok {
		size = stored
	} else if archiveSize, ok := hdr.GetInt32(TagArchiveSize); ok {
		size += archiveSize
	}
	sig.SetInt32(TagSigSize, size)

	if payloadSize, ok := hdr.GetInt32(TagArchiveSize); ok {
		sig.SetInt32(TagSigPayloadSize, payloadSize)
	}

	sha1digest := sha1.New()
	sha1digest.Write(encodedSection)
	sig.SetString(TagSigSHA1, hex.EncodeToString(sha1digest.Sum(nil)))

	if md5sum, ok := hdr.GetBin(TagSigMD5Stored); ok {
		sig.SetBin(TagSigMD5, md5sum)
	}

	return sig
}

//EncodeSignature serializes a signature section including the padding that
//aligns the following metadata section to an 8-byte boundary. [LSB, 22.2.2]
func EncodeSignature(sig *Header) []byte {
	buf := sig.Encode(TagHeaderSignatures)
	for len(buf)%8 != 0 {
		buf = append(buf, 0x00)
	}
	return buf
}
