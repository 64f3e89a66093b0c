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
	"io"

	"github.com/pkg/errors"
)

//ReadSection reads one header structure from the given reader. When aligned
//is true, the section is followed by padding up to an 8-byte boundary which
//is consumed as well (the signature section is stored like that, see
//[LSB, 22.2.2]).
//
//If the section carries a region record (TagHeaderImmutable or
//TagHeaderImage), the decoded header gains a BIN entry under that tag holding
//the complete section image, so that the originally signed bytes stay
//recoverable after further entries have been added.
func ReadSection(reader io.Reader, aligned bool) (*Header, error) {
	var rec headerRecord
	err := binary.Read(reader, binary.BigEndian, &rec)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read header record")
	}
	if rec.Magic != headerMagic {
		return nil, errors.Errorf("did not find header structure at expected position (saw %x)", rec.Magic)
	}

	records := make([]indexRecord, rec.IndexRecordCount)
	err = binary.Read(reader, binary.BigEndian, records)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read header index")
	}

	data := make([]byte, rec.DataSize)
	_, err = io.ReadFull(reader, data)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read header data")
	}

	if aligned {
		//next structure in reader is aligned to an 8-byte boundary
		if modulo := rec.DataSize % 8; modulo != 0 {
			_, err = io.ReadFull(reader, make([]byte, 8-modulo))
			if err != nil {
				return nil, errors.Wrap(err, "cannot skip alignment padding")
			}
		}
	}

	hdr := &Header{}
	var regionTag Tag

	for _, ir := range records {
		tag := Tag(ir.Tag)
		if tag == TagHeaderImage || tag == TagHeaderSignatures || tag == TagHeaderImmutable {
			regionTag = tag
			continue
		}
		value, err := decodeValue(Type(ir.Type), data, ir.Offset, ir.Count)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot decode tag %d", ir.Tag)
		}
		if value != nil {
			hdr.entries = append(hdr.entries, entry{tag, Type(ir.Type), value})
		}
	}

	if regionTag != 0 {
		//reassemble the section image for later regeneration
		var image bytes.Buffer
		binary.Write(&image, binary.BigEndian, &rec)
		binary.Write(&image, binary.BigEndian, records)
		image.Write(data)
		hdr.entries = append(hdr.entries, entry{regionTag, BinType, image.Bytes()})
	}

	return hdr, nil
}

//Decode reads a header structure from an in-memory section image, e.g. one
//recovered from a TagHeaderImmutable entry.
func Decode(blob []byte) (*Header, error) {
	return ReadSection(bytes.NewReader(blob), false)
}

func decodeValue(typ Type, data []byte, offset, count uint32) (interface{}, error) {
	if int(offset) > len(data) {
		return nil, errors.Errorf("offset %d outside of data area (%d bytes)", offset, len(data))
	}
	buf := data[offset:]

	switch typ {
	case NullType:
		return nil, nil
	case CharType, Int8Type, BinType:
		if int(count) > len(buf) {
			return nil, errors.New("value extends beyond data area")
		}
		return append([]byte(nil), buf[:count]...), nil
	case Int16Type:
		value := make([]int16, count)
		err := binary.Read(bytes.NewReader(buf), binary.BigEndian, value)
		return value, err
	case Int32Type:
		value := make([]int32, count)
		err := binary.Read(bytes.NewReader(buf), binary.BigEndian, value)
		return value, err
	case StringType, I18NStringType:
		//for I18NSTRING, count is the number of locales; the C locale comes
		//first and is the one we keep
		str, _, err := readNulTerminated(buf)
		return str, err
	case StringArrayType:
		value := make([]string, 0, count)
		for idx := uint32(0); idx < count; idx++ {
			str, rest, err := readNulTerminated(buf)
			if err != nil {
				return nil, err
			}
			value = append(value, str)
			buf = rest
		}
		return value, nil
	default:
		return nil, errors.Errorf("unknown data type %d", typ)
	}
}

func readNulTerminated(buf []byte) (string, []byte, error) {
	idx := bytes.IndexByte(buf, 0x00)
	if idx < 0 {
		return "", nil, errors.New("unterminated string in data area")
	}
	return string(buf[:idx]), buf[idx+1:], nil
}
