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

package psm

import (
	"compress/bzip2"
	"compress/gzip"
	"io"

	bzip2w "github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//payloadFlags negotiates the payload compression: the header names the
//compressor, the goal selects the stream direction. An unknown compressor is
//an error.
func (m *Machine) payloadFlags() error {
	compressor, ok := m.te.Header.GetString(header.TagPayloadCompressor)
	if !ok {
		compressor = "gzip"
	}

	flags := "r"
	if m.goal == GoalRepackage {
		flags = "w9"
	}

	switch compressor {
	case "gzip":
		flags += ".gzdio"
	case "bzip2":
		flags += ".bzdio"
	default:
		return install.Errorf(install.CodeUnpackFail,
			"unknown payload compressor %q in %s", compressor, m.te.NEVR())
	}

	m.ioFlags = flags
	return nil
}

//payloadReader wraps the package stream with the decompressor selected by
//the flag string.
func payloadReader(flags string, reader io.Reader) (io.ReadCloser, error) {
	switch flags {
	case "r.gzdio":
		zr, err := gzip.NewReader(reader)
		return zr, errors.Wrap(err, "cannot open gzip stream")
	case "r.bzdio":
		return io.NopCloser(bzip2.NewReader(reader)), nil
	default:
		return nil, errors.Errorf("unusable payload flags %q", flags)
	}
}

//payloadWriter wraps the output stream with the compressor selected by the
//flag string.
func payloadWriter(flags string, writer io.Writer) (io.WriteCloser, error) {
	switch flags {
	case "w9.gzdio":
		zw, err := gzip.NewWriterLevel(writer, 9)
		return zw, errors.Wrap(err, "cannot open gzip stream")
	case "w9.bzdio":
		zw, err := bzip2w.NewWriter(writer, &bzip2w.WriterConfig{Level: 9})
		return zw, errors.Wrap(err, "cannot open bzip2 stream")
	default:
		return nil, errors.Errorf("unusable payload flags %q", flags)
	}
}
