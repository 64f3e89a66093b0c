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

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	err := Errorf(CodeScriptFail, "scriptlet of %s exited with status %d", "a-1-1", 3)
	assert.Equal(t, CodeScriptFail, CodeOf(err))
	assert.Contains(t, err.Error(), "scriptlet failure")
	assert.Contains(t, err.Error(), "a-1-1")

	//the code survives further wrapping
	wrapped := errors.Wrap(err, "while processing element")
	assert.Equal(t, CodeScriptFail, CodeOf(wrapped))

	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(CodeIO, nil, "no failure"))

	err := WrapError(CodeDBFail, errors.New("disk full"), "cannot add record")
	assert.Equal(t, CodeDBFail, CodeOf(err))
	assert.Contains(t, err.Error(), "cannot add record")
	assert.Contains(t, err.Error(), "disk full")
}

func TestErrorCollector(t *testing.T) {
	ec := errorCollector{}
	assert.NoError(t, ec.Collapse())

	ec.Add(nil)
	assert.NoError(t, ec.Collapse())

	ec.Addf("first problem")
	assert.EqualError(t, ec.Collapse(), "first problem")

	ec.Addf("second problem with %d details", 2)
	assert.Contains(t, ec.Collapse().Error(), "first problem")
	assert.Contains(t, ec.Collapse().Error(), "second problem with 2 details")
}
