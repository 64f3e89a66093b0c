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
	"encoding/binary"
)

//indexRecord represents an index record in the header structure, i.e. the
//location of a single key-value entry. The actual value is stored in the data
//area. Defined in [LSB, 25.2.2.2].
type indexRecord struct {
	Tag    uint32
	Type   uint32
	Offset uint32
	Count  uint32
}

//Binary representation of the header record. [LSB, 25.2.2.1]
type headerRecord struct {
	Magic            [4]byte
	Reserved         [4]byte
	IndexRecordCount uint32
	DataSize         uint32
}

var headerMagic = [4]byte{0x8E, 0xAD, 0xE8, 0x01}

//typeAlignment returns the alignment requirement for values of the given type
//within the data area.
func typeAlignment(t Type) int {
	switch t {
	case Int16Type:
		return 2
	case Int32Type:
		return 4
	case Int64Type:
		return 8
	default:
		return 1
	}
}

//Encode serializes this header, bracketing all entries with the given region
//tag (TagHeaderImmutable for the metadata section, TagHeaderSignatures for
//the signature section).
//
//A "region" marks a set of header tags and data that are to be considered
//immutable, i.e. usable for validation purposes such as calculating hash
//digests and signatures. The index record for the region tag is at the
//*start* of the index record array, and its data is located at the *end* of
//the data area. The data is another index record that (using a negative
//offset into the data area) points back at the original index record.
//
//Entries carrying a region tag themselves are skipped: they hold the
//recovered original section image (see Decode) and must not collide with the
//structural region record written here.
func (hdr *Header) Encode(regionTag Tag) []byte {
	var data bytes.Buffer
	var records []indexRecord

	for _, e := range hdr.entries {
		if e.tag == TagHeaderImage || e.tag == TagHeaderSignatures || e.tag == TagHeaderImmutable {
			continue
		}

		//align the data area for the value type
		align := typeAlignment(e.typ)
		for data.Len()%align != 0 {
			data.WriteByte(0x00)
		}

		rec := indexRecord{
			Tag:    uint32(e.tag),
			Type:   uint32(e.typ),
			Offset: uint32(data.Len()),
		}

		switch value := e.value.(type) {
		case string:
			rec.Count = 1
			data.WriteString(value)
			data.WriteByte(0x00)
		case []string:
			rec.Count = uint32(len(value))
			for _, str := range value {
				data.WriteString(str)
				data.WriteByte(0x00)
			}
		case []int32:
			rec.Count = uint32(len(value))
			binary.Write(&data, binary.BigEndian, value)
		case []int16:
			rec.Count = uint32(len(value))
			binary.Write(&data, binary.BigEndian, value)
		case []byte:
			rec.Count = uint32(len(value))
			data.Write(value)
		}

		records = append(records, rec)
	}

	var buf bytes.Buffer
	actualDataSize := uint32(data.Len())
	actualRecordCount := uint32(len(records))
	binary.Write(&buf, binary.BigEndian, &headerRecord{
		Magic:            headerMagic,
		Reserved:         [4]byte{0x00, 0x00, 0x00, 0x00},
		IndexRecordCount: actualRecordCount + 1, //+1 for the region tag
		DataSize:         actualDataSize + 16,   //+16 for the region tag
	})

	//write index record for the region tag
	binary.Write(&buf, binary.BigEndian, &indexRecord{
		Tag:    uint32(regionTag),
		Type:   uint32(BinType),
		Offset: actualDataSize,
		Count:  16,
	})

	//write the actual index records
	for _, rec := range records {
		binary.Write(&buf, binary.BigEndian, rec)
	}

	//write data, then the trailer data for the region tag
	buf.Write(data.Bytes())
	binary.Write(&buf, binary.BigEndian, &indexRecord{
		Tag:    uint32(regionTag),
		Type:   uint32(BinType),
		Offset: uint32(-int32(actualRecordCount+1) * 16),
		Count:  16,
	})

	return buf.Bytes()
}
