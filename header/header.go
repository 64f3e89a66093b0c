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

//Package header implements the RPM header structure: a typed mapping from tag
//identifiers to values, with the binary encoding used in package files and in
//the package database, plus the lead and signature sections that surround the
//metadata header in a package file.
//
//Documentation for the RPM file format:
//
//[LSB] http://refspecs.linux-foundation.org/LSB_3.1.0/LSB-Core-generic/LSB-Core-generic/pkgformat.html
//[RPM] http://www.rpm.org/max-rpm/s1-rpm-file-format-rpm-file-format.html
package header

import (
	"fmt"
)

//entry is a single key-value pair in a Header. The value is one of
//string, []string, []int32, []int16 or []byte depending on the type.
type entry struct {
	tag   Tag
	typ   Type
	value interface{}
}

//Header represents an RPM header structure (as used in the signature section
//and the metadata section), as defined in [LSB, 25.2.2]. The zero value is an
//empty header ready for use.
type Header struct {
	entries []entry
}

//New returns an empty header.
func New() *Header {
	return &Header{}
}

func (hdr *Header) find(tag Tag) *entry {
	for idx := range hdr.entries {
		if hdr.entries[idx].tag == tag {
			return &hdr.entries[idx]
		}
	}
	return nil
}

//Has checks whether the given tag is present in this header.
func (hdr *Header) Has(tag Tag) bool {
	return hdr.find(tag) != nil
}

//Delete removes the given tag from this header (if present).
func (hdr *Header) Delete(tag Tag) {
	for idx := range hdr.entries {
		if hdr.entries[idx].tag == tag {
			hdr.entries = append(hdr.entries[:idx], hdr.entries[idx+1:]...)
			return
		}
	}
}

func (hdr *Header) set(tag Tag, typ Type, value interface{}) {
	if e := hdr.find(tag); e != nil {
		e.typ = typ
		e.value = value
		return
	}
	hdr.entries = append(hdr.entries, entry{tag, typ, value})
}

//GetString reads a STRING (or I18NSTRING) entry.
func (hdr *Header) GetString(tag Tag) (string, bool) {
	e := hdr.find(tag)
	if e == nil {
		return "", false
	}
	s, ok := e.value.(string)
	return s, ok
}

//GetStringArray reads a STRING_ARRAY entry.
func (hdr *Header) GetStringArray(tag Tag) ([]string, bool) {
	e := hdr.find(tag)
	if e == nil {
		return nil, false
	}
	s, ok := e.value.([]string)
	return s, ok
}

//GetInt32Array reads an INT32 entry.
func (hdr *Header) GetInt32Array(tag Tag) ([]int32, bool) {
	e := hdr.find(tag)
	if e == nil {
		return nil, false
	}
	v, ok := e.value.([]int32)
	return v, ok
}

//GetInt32 reads the first element of an INT32 entry.
func (hdr *Header) GetInt32(tag Tag) (int32, bool) {
	v, ok := hdr.GetInt32Array(tag)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

//GetInt16Array reads an INT16 entry.
func (hdr *Header) GetInt16Array(tag Tag) ([]int16, bool) {
	e := hdr.find(tag)
	if e == nil {
		return nil, false
	}
	v, ok := e.value.([]int16)
	return v, ok
}

//GetInt16ArrayAsUint16 reads an INT16 entry, reinterpreting the values as
//unsigned. File modes are stored like that: the wire type is signed, but the
//values are mode bits.
func (hdr *Header) GetInt16ArrayAsUint16(tag Tag) ([]uint16, bool) {
	v, ok := hdr.GetInt16Array(tag)
	if !ok {
		return nil, false
	}
	result := make([]uint16, len(v))
	for idx, value := range v {
		result[idx] = uint16(value)
	}
	return result, true
}

//GetInt32ArrayAsUint32 reads an INT32 entry, reinterpreting the values as
//unsigned (file sizes and similar counters).
func (hdr *Header) GetInt32ArrayAsUint32(tag Tag) ([]uint32, bool) {
	v, ok := hdr.GetInt32Array(tag)
	if !ok {
		return nil, false
	}
	result := make([]uint32, len(v))
	for idx, value := range v {
		result[idx] = uint32(value)
	}
	return result, true
}

//GetChars reads a CHAR or INT8 entry.
func (hdr *Header) GetChars(tag Tag) ([]byte, bool) {
	e := hdr.find(tag)
	if e == nil || (e.typ != CharType && e.typ != Int8Type) {
		return nil, false
	}
	v, ok := e.value.([]byte)
	return v, ok
}

//GetBin reads a BIN entry.
func (hdr *Header) GetBin(tag Tag) ([]byte, bool) {
	e := hdr.find(tag)
	if e == nil || e.typ != BinType {
		return nil, false
	}
	v, ok := e.value.([]byte)
	return v, ok
}

//SetString adds or replaces a STRING entry.
func (hdr *Header) SetString(tag Tag, value string) {
	hdr.set(tag, StringType, value)
}

//SetI18NString adds or replaces an I18NSTRING entry.
func (hdr *Header) SetI18NString(tag Tag, value string) {
	hdr.set(tag, I18NStringType, value)
}

//SetStringArray adds or replaces a STRING_ARRAY entry.
func (hdr *Header) SetStringArray(tag Tag, value []string) {
	hdr.set(tag, StringArrayType, value)
}

//SetInt32Array adds or replaces an INT32 entry.
func (hdr *Header) SetInt32Array(tag Tag, value []int32) {
	hdr.set(tag, Int32Type, value)
}

//SetInt32 adds or replaces a single-valued INT32 entry.
func (hdr *Header) SetInt32(tag Tag, value int32) {
	hdr.set(tag, Int32Type, []int32{value})
}

//SetInt16Array adds or replaces an INT16 entry.
func (hdr *Header) SetInt16Array(tag Tag, value []int16) {
	hdr.set(tag, Int16Type, value)
}

//SetChars adds or replaces a CHAR entry.
func (hdr *Header) SetChars(tag Tag, value []byte) {
	hdr.set(tag, CharType, value)
}

//SetBin adds or replaces a BIN entry.
func (hdr *Header) SetBin(tag Tag, value []byte) {
	hdr.set(tag, BinType, value)
}

//Copy returns a deep copy of this header.
func (hdr *Header) Copy() *Header {
	result := &Header{entries: make([]entry, len(hdr.entries))}
	copy(result.entries, hdr.entries)
	for idx := range result.entries {
		switch v := result.entries[idx].value.(type) {
		case []string:
			result.entries[idx].value = append([]string(nil), v...)
		case []int32:
			result.entries[idx].value = append([]int32(nil), v...)
		case []int16:
			result.entries[idx].value = append([]int16(nil), v...)
		case []byte:
			result.entries[idx].value = append([]byte(nil), v...)
		}
	}
	return result
}

//NVR reads the name, version and release entries.
func (hdr *Header) NVR() (name, version, release string) {
	name, _ = hdr.GetString(TagName)
	version, _ = hdr.GetString(TagVersion)
	release, _ = hdr.GetString(TagRelease)
	return
}

//NEVR formats the name-[epoch:]version-release string identifying this
//package.
func (hdr *Header) NEVR() string {
	name, version, release := hdr.NVR()
	str := fmt.Sprintf("%s-%s-%s", name, version, release)
	if epoch, ok := hdr.GetInt32(TagEpoch); ok {
		str = fmt.Sprintf("%s-%d:%s-%s", name, epoch, version, release)
	}
	return str
}

//FileCount returns the number of files described by this header.
func (hdr *Header) FileCount() int {
	basenames, ok := hdr.GetStringArray(TagBasenames)
	if !ok {
		if names, ok := hdr.GetStringArray(TagOldFileNames); ok {
			return len(names)
		}
		return 0
	}
	return len(basenames)
}
