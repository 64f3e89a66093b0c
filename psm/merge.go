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
	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/deps"
	"github.com/holocm/libpackageinstall/header"
)

//mergeFileTags are the per-file arrays folded from the new header into the
//stored one during a multilib merge.
var mergeFileTags = []header.Tag{
	header.TagFileSizes,
	header.TagFileStates,
	header.TagFileModes,
	header.TagFileRdevs,
	header.TagFileMtimes,
	header.TagFileMD5s,
	header.TagFileLinktos,
	header.TagFileFlags,
	header.TagFileUserName,
	header.TagFileGroupName,
	header.TagFileVerifyFlags,
	header.TagFileDevices,
	header.TagFileInodes,
	header.TagFileLangs,
	header.TagBasenames,
}

//mergeDepTags are the dependency tag triples merged during a multilib merge.
var mergeDepTags = []struct {
	name, version, flags header.Tag
}{
	{header.TagRequireName, header.TagRequireVersion, header.TagRequireFlags},
	{header.TagProvideName, header.TagProvideVersion, header.TagProvideFlags},
	{header.TagConflictName, header.TagConflictVersion, header.TagConflictFlags},
}

//mergeFiles folds the file data of newH into h, keeping only files whose
//per-file action is not skip-multilib. Used when a colored variant of an
//already-installed package is installed alongside it.
func mergeFiles(fi *install.FileInfo, h, newH *header.Header) error {
	actions := fi.Actions
	keep := func(idx int) bool {
		if actions == nil || idx >= len(actions) {
			return true
		}
		return actions[idx] != install.ActionSkipMultilib
	}

	//SIZE becomes the sum of the installed size and the kept new files
	totalSize, _ := h.GetInt32(header.TagSize)
	newSizes, _ := newH.GetInt32Array(header.TagFileSizes)
	for idx, size := range newSizes {
		if keep(idx) {
			totalSize += size
		}
	}
	h.SetInt32(header.TagSize, totalSize)

	for _, tag := range mergeFileTags {
		err := appendFiltered(h, newH, tag, keep)
		if err != nil {
			return err
		}
	}

	//extend the directory table by the directories the kept files live in,
	//and rewrite their directory indices against the combined table
	newDirIndexes, _ := newH.GetInt32Array(header.TagDirIndexes)
	newDirNames, _ := newH.GetStringArray(header.TagDirNames)
	dirNames, _ := h.GetStringArray(header.TagDirNames)
	dirIndexes, _ := h.GetInt32Array(header.TagDirIndexes)

	mergedNames := append([]string(nil), dirNames...)
	for idx := range newDirIndexes {
		if !keep(idx) {
			continue
		}
		name := newDirNames[newDirIndexes[idx]]
		pos := -1
		for existingIdx, existing := range mergedNames {
			if existing == name {
				pos = existingIdx
				break
			}
		}
		if pos < 0 {
			pos = len(mergedNames)
			mergedNames = append(mergedNames, name)
		}
		dirIndexes = append(dirIndexes, int32(pos))
	}
	h.SetInt32Array(header.TagDirIndexes, dirIndexes)
	h.SetStringArray(header.TagDirNames, mergedNames)

	//merge the dependency sets: entries that the stored header already has
	//(same name, same version, same sense bits) are dropped, and only
	//entries carrying the multilib dependency flag survive
	for _, tags := range mergeDepTags {
		mergeDeps(h, newH, tags.name, tags.version, tags.flags)
	}

	return nil
}

//appendFiltered appends the filtered new values of one per-file tag to the
//values the stored header already has.
func appendFiltered(h, newH *header.Header, tag header.Tag, keep func(int) bool) error {
	if chars, ok := newH.GetChars(tag); ok {
		existing, _ := h.GetChars(tag)
		for idx, value := range chars {
			if keep(idx) {
				existing = append(existing, value)
			}
		}
		h.SetChars(tag, existing)
		return nil
	}
	if values, ok := newH.GetInt16Array(tag); ok {
		existing, _ := h.GetInt16Array(tag)
		for idx, value := range values {
			if keep(idx) {
				existing = append(existing, value)
			}
		}
		h.SetInt16Array(tag, existing)
		return nil
	}
	if values, ok := newH.GetInt32Array(tag); ok {
		existing, _ := h.GetInt32Array(tag)
		for idx, value := range values {
			if keep(idx) {
				existing = append(existing, value)
			}
		}
		h.SetInt32Array(tag, existing)
		return nil
	}
	if values, ok := newH.GetStringArray(tag); ok {
		existing, _ := h.GetStringArray(tag)
		for idx, value := range values {
			if keep(idx) {
				existing = append(existing, value)
			}
		}
		h.SetStringArray(tag, existing)
		return nil
	}
	//the new header does not carry this tag
	return nil
}

//mergeDeps appends the surviving dependency entries of one tag triple.
func mergeDeps(h, newH *header.Header, nameTag, versionTag, flagsTag header.Tag) {
	newNames, ok := newH.GetStringArray(nameTag)
	if !ok {
		return
	}
	newVersions, _ := newH.GetStringArray(versionTag)
	newFlags, _ := newH.GetInt32Array(flagsTag)

	names, _ := h.GetStringArray(nameTag)
	versions, _ := h.GetStringArray(versionTag)
	flags, _ := h.GetInt32Array(flagsTag)

	duplicate := func(idx int) bool {
		for existingIdx := range names {
			if names[existingIdx] != newNames[idx] {
				continue
			}
			if existingIdx < len(versions) && idx < len(newVersions) &&
				versions[existingIdx] != newVersions[idx] {
				continue
			}
			senseA := deps.Flags(0)
			senseB := deps.Flags(0)
			if existingIdx < len(flags) {
				senseA = deps.Flags(flags[existingIdx]) & deps.SenseMask
			}
			if idx < len(newFlags) {
				senseB = deps.Flags(newFlags[idx]) & deps.SenseMask
			}
			if senseA == senseB {
				return true
			}
		}
		return false
	}

	changed := false
	for idx := range newNames {
		if idx >= len(newFlags) || deps.Flags(newFlags[idx])&deps.FlagMultilib == 0 {
			continue
		}
		if duplicate(idx) {
			continue
		}
		names = append(names, newNames[idx])
		if idx < len(newVersions) {
			versions = append(versions, newVersions[idx])
		} else {
			versions = append(versions, "")
		}
		flags = append(flags, newFlags[idx])
		changed = true
	}

	if changed {
		h.SetStringArray(nameTag, names)
		h.SetStringArray(versionTag, versions)
		h.SetInt32Array(flagsTag, flags)
	}
}
