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
	"io"
)

//Package bundles the three structures that precede the payload in a package
//file.
type Package struct {
	Lead      *Lead
	Signature *Header
	Header    *Header
}

//ReadPackage reads lead, signature section and metadata section from a
//package stream. The reader is left positioned at the start of the compressed
//payload. The durable signature values are merged into the metadata header
//(see MergeSignature).
func ReadPackage(reader io.Reader) (*Package, error) {
	lead, err := ReadLead(reader)
	if err != nil {
		return nil, err
	}
	sig, err := ReadSection(reader, true)
	if err != nil {
		return nil, err
	}
	hdr, err := ReadSection(reader, false)
	if err != nil {
		return nil, err
	}
	MergeSignature(hdr, sig)
	return &Package{Lead: lead, Signature: sig, Header: hdr}, nil
}
