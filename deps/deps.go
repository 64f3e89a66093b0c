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

//Package deps provides an iterable view of the dependency triples (name,
//version constraint, flags) stored in a package header, and the version
//range matching used for trigger firing.
package deps

import (
	"fmt"

	"github.com/holocm/libpackageinstall/header"
)

//Flags describes how a dependency entry constrains a version, and which kind
//of event it reacts to.
type Flags int32

//Sense bits for Flags.
const (
	FlagLess    Flags = 0x02
	FlagGreater Flags = 0x04
	FlagEqual   Flags = 0x08
	//SenseMask covers the version comparison bits.
	SenseMask Flags = 0x0e

	FlagMultilib Flags = 0x80000

	FlagTriggerIn     Flags = 0x10000
	FlagTriggerUn     Flags = 0x20000
	FlagTriggerPostUn Flags = 0x40000
	FlagTriggerPreIn  Flags = 0x2000000
	//TriggerMask covers the trigger kind bits.
	TriggerMask Flags = FlagTriggerIn | FlagTriggerUn | FlagTriggerPostUn | FlagTriggerPreIn
)

//Entry is one (name, version constraint, flags) triple. Index is the
//position of the triple within its header arrays; for trigger sets this is
//the value used to look up the shared script via TagTriggerIndex.
type Entry struct {
	Name  string
	EVR   string
	Flags Flags
	Index int
}

//Set is an iterable view of the dependency triples under one tag group of a
//header. The view copies the underlying arrays, so it stays valid if the
//header is modified afterwards.
type Set struct {
	entries []Entry
}

//tagTriple returns the version and flags tags belonging to a name tag.
func tagTriple(nameTag header.Tag) (versionTag, flagsTag header.Tag, err error) {
	switch nameTag {
	case header.TagRequireName:
		return header.TagRequireVersion, header.TagRequireFlags, nil
	case header.TagProvideName:
		return header.TagProvideVersion, header.TagProvideFlags, nil
	case header.TagConflictName:
		return header.TagConflictVersion, header.TagConflictFlags, nil
	case header.TagObsoleteName:
		return header.TagObsoleteVersion, header.TagObsoleteFlags, nil
	case header.TagTriggerName:
		return header.TagTriggerVersion, header.TagTriggerFlags, nil
	default:
		return 0, 0, fmt.Errorf("tag %d does not identify a dependency set", nameTag)
	}
}

//New extracts the dependency set stored under the given name tag
//(TagRequireName, TagProvideName, TagConflictName, TagObsoleteName or
//TagTriggerName). A header without the name tag yields an empty set.
func New(hdr *header.Header, nameTag header.Tag) (*Set, error) {
	versionTag, flagsTag, err := tagTriple(nameTag)
	if err != nil {
		return nil, err
	}

	names, ok := hdr.GetStringArray(nameTag)
	if !ok {
		return &Set{}, nil
	}
	versions, _ := hdr.GetStringArray(versionTag)
	flags, _ := hdr.GetInt32Array(flagsTag)

	set := &Set{entries: make([]Entry, 0, len(names))}
	for idx, name := range names {
		e := Entry{Name: name, Index: idx}
		if idx < len(versions) {
			e.EVR = versions[idx]
		}
		if idx < len(flags) {
			e.Flags = Flags(flags[idx])
		}
		set.entries = append(set.entries, e)
	}
	return set, nil
}

//Entries returns the triples in header order.
func (s *Set) Entries() []Entry {
	return s.entries
}

//Len returns the number of triples.
func (s *Set) Len() int {
	return len(s.entries)
}

//HeaderEVR builds the EVR of the package described by the given header.
func HeaderEVR(hdr *header.Header) EVR {
	var evr EVR
	if epoch, ok := hdr.GetInt32(header.TagEpoch); ok {
		evr.Epoch = fmt.Sprintf("%d", epoch)
	}
	evr.Version, _ = hdr.GetString(header.TagVersion)
	evr.Release, _ = hdr.GetString(header.TagRelease)
	return evr
}

//MatchesHeader checks whether the package described by hdr satisfies this
//entry's version constraint. An entry without sense bits or without a
//version matches any version.
func (e Entry) MatchesHeader(hdr *header.Header) bool {
	if e.EVR == "" || e.Flags&SenseMask == 0 {
		return true
	}

	result := HeaderEVR(hdr).Compare(ParseEVR(e.EVR))
	switch {
	case result < 0:
		return e.Flags&FlagLess != 0
	case result > 0:
		return e.Flags&FlagGreater != 0
	default:
		return e.Flags&FlagEqual != 0
	}
}

//CompareHeaders orders two package headers by epoch, then version, then
//release. An explicit epoch sorts newer than a missing one.
func CompareHeaders(first, second *header.Header) int {
	epochOne, okOne := first.GetInt32(header.TagEpoch)
	epochTwo, okTwo := second.GetInt32(header.TagEpoch)
	switch {
	case okOne && !okTwo:
		return 1
	case !okOne && okTwo:
		return -1
	case okOne && okTwo:
		if epochOne < epochTwo {
			return -1
		}
		if epochOne > epochTwo {
			return 1
		}
	}

	versionOne, _ := first.GetString(header.TagVersion)
	versionTwo, _ := second.GetString(header.TagVersion)
	if result := VersionCompare(versionOne, versionTwo); result != 0 {
		return result
	}

	releaseOne, _ := first.GetString(header.TagRelease)
	releaseTwo, _ := second.GetString(header.TagRelease)
	return VersionCompare(releaseOne, releaseTwo)
}
