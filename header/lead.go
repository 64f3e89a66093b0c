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
	"encoding/binary"
	"io"
	"strings"

	"github.com/pkg/errors"
)

//Values for Lead.Type.
const (
	LeadTypeBinary uint16 = 0
	LeadTypeSource uint16 = 1
)

//LeadSignatureHeader in Lead.SignatureType announces that a signature section
//follows the lead.
const LeadSignatureHeader uint16 = 5

//Lead represents the RPM lead (the first structure of an RPM file, before the
//signature and header sections).
type Lead struct {
	Magic              [4]byte
	Version            [2]byte
	Type               uint16
	Architecture       uint16
	NameVersionRelease [66]byte
	OperatingSystem    uint16
	SignatureType      uint16
	Reserved           [16]byte
}

var leadMagic = [4]byte{0xed, 0xab, 0xee, 0xdb}

//NewLead creates a lead for a package identified by the given
//name-version-release string.
func NewLead(nevr string, leadType, archnum, osnum uint16) *Lead {
	lead := &Lead{
		Magic:           leadMagic,
		Version:         [2]byte{0x03, 0x00},
		Type:            leadType,
		Architecture:    archnum,
		OperatingSystem: osnum,
		SignatureType:   LeadSignatureHeader,
	}

	//initialize name-version-release string, but respect limited field size;
	//must be a NUL-terminated string
	nvr := []byte(nevr)
	for idx := 0; idx < 65 && idx < len(nvr); idx++ {
		lead.NameVersionRelease[idx] = nvr[idx]
	}

	return lead
}

//Name returns the name-version-release string stored in this lead.
func (l *Lead) Name() string {
	return strings.TrimRight(string(l.NameVersionRelease[:]), "\x00")
}

//IsSource checks whether this lead announces a source package.
func (l *Lead) IsSource() bool {
	return l.Type == LeadTypeSource
}

//WriteTo writes the binary encoding of this lead.
func (l *Lead) WriteTo(writer io.Writer) error {
	return binary.Write(writer, binary.BigEndian, l)
}

//ReadLead reads and validates a lead from the start of a package stream.
func ReadLead(reader io.Reader) (*Lead, error) {
	var lead Lead
	err := binary.Read(reader, binary.BigEndian, &lead)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read lead")
	}
	if lead.Magic != leadMagic {
		return nil, errors.Errorf("not an RPM package (lead magic is %x)", lead.Magic)
	}
	return &lead, nil
}
