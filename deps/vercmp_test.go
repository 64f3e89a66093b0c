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

package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCompare(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "2.0", -1},
		{"2.0", "1.0", 1},
		{"2.0.1", "2.0", 1},
		{"2.0", "2.0.1", -1},
		{"1.10", "1.9", 1},
		{"1.09", "1.9", 0},
		{"1.010", "1.10", 0},
		{"5.5p1", "5.5p2", -1},
		{"5.5p10", "5.5p1", 1},
		{"10xyz", "10.1xyz", -1},
		{"xyz10", "xyz10.1", -1},
		{"xyz.4", "xyz.4", 0},
		{"xyz.4", "8", -1},
		{"8", "xyz.4", 1},
		//the string with leftover segments is newer
		{"1.2a", "1.2", 1},
		{"1.2", "1.2a", -1},
		{"a", "b", -1},
		{"1_2", "1.2", 0},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, VersionCompare(tc.a, tc.b),
			"VersionCompare(%q, %q)", tc.a, tc.b)
	}
}

func TestParseEVR(t *testing.T) {
	testCases := []struct {
		input    string
		expected EVR
	}{
		{"1.0-1", EVR{Version: "1.0", Release: "1"}},
		{"2:1.0-1", EVR{Epoch: "2", Version: "1.0", Release: "1"}},
		{"1.0", EVR{Version: "1.0"}},
		{"0:3.2.1-4.el7", EVR{Epoch: "0", Version: "3.2.1", Release: "4.el7"}},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ParseEVR(tc.input), "ParseEVR(%q)", tc.input)
	}
}

func TestEVRCompare(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected int
	}{
		{"1.0-1", "1.0-1", 0},
		{"1.0-1", "1.0-2", -1},
		{"1.0-2", "1.0-1", 1},
		{"1:1.0-1", "2.0-1", 1},
		{"1.0-1", "1:0.1-1", -1},
		//a missing release matches any release
		{"1.0", "1.0-5", 0},
		{"1.0-5", "1.0", 0},
		//a missing epoch counts as zero
		{"0:1.0-1", "1.0-1", 0},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ParseEVR(tc.a).Compare(ParseEVR(tc.b)),
			"EVR compare %q vs %q", tc.a, tc.b)
	}
}
