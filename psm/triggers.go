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
	"github.com/sirupsen/logrus"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/deps"
	"github.com/holocm/libpackageinstall/header"
	"github.com/holocm/libpackageinstall/scriptlet"
)

//handleOneTrigger checks the trigger dependencies of a target header against
//a source header, and runs the script of the first entry that matches the
//source's name, the current trigger sense and the source's version.
//
//Each source/target header pair can only result in a single script being
//run. alreadyRun (when non-nil) additionally deduplicates across triggers
//that share a script index.
func (m *Machine) handleOneTrigger(sourceH, triggeredH *header.Header, arg2 int, alreadyRun []bool) error {
	sourceName, _ := sourceH.GetString(header.TagName)

	triggers, err := deps.New(triggeredH, header.TagTriggerName)
	if err != nil {
		return install.WrapError(install.CodeScriptFail, err, "cannot read trigger set")
	}

	for _, trigger := range triggers.Entries() {
		if trigger.Name != sourceName {
			continue
		}
		if trigger.Flags&m.sense == 0 {
			continue
		}
		if !trigger.MatchesHeader(sourceH) {
			continue
		}

		indices, okIdx := triggeredH.GetInt32Array(header.TagTriggerIndex)
		scripts, okScripts := triggeredH.GetStringArray(header.TagTriggerScripts)
		progs, okProgs := triggeredH.GetStringArray(header.TagTriggerScriptProg)
		if !okIdx || !okScripts || !okProgs {
			continue
		}
		if trigger.Index >= len(indices) {
			continue
		}

		arg1, err := m.ts.DB.CountPackages(trigger.Name)
		if err != nil {
			//fails the same way as a failing script would
			return install.WrapError(install.CodeScriptFail, err, "cannot count trigger source packages")
		}
		arg1 += m.countCorrection

		index := int(indices[trigger.Index])
		if index >= len(scripts) || index >= len(progs) {
			continue
		}
		if alreadyRun == nil || (index < len(alreadyRun) && !alreadyRun[index]) {
			runner := scriptlet.Runner{TS: m.ts}
			err := runner.Run(triggeredH, "%trigger",
				[]string{progs[index]}, scripts[index], arg1, arg2)
			if alreadyRun != nil && index < len(alreadyRun) {
				alreadyRun[index] = true
			}
			if err != nil {
				return err
			}
		}

		break
	}

	return nil
}

//runTriggers fires the trigger scripts of other installed packages that
//react to this package (the outbound pass).
func (m *Machine) runTriggers() error {
	ts := m.ts

	numPackage, err := ts.DB.CountPackages(m.te.Name())
	if err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot count packages for trigger pass")
	}
	numPackage += m.countCorrection
	if numPackage < 0 {
		return install.Errorf(install.CodeDBFail,
			"negative package count for %s in trigger pass", m.te.Name())
	}

	//the correction applies to the package being processed, not to the
	//targets scanned here
	countCorrection := m.countCorrection
	m.countCorrection = 0
	defer func() {
		m.countCorrection = countCorrection
	}()

	it := ts.DB.ByTriggerName(m.te.Name())
	defer it.Close()
	if err := it.Err(); err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot scan for triggered packages")
	}

	var firstErr error
	for triggeredH := it.Next(); triggeredH != nil; triggeredH = it.Next() {
		err := m.handleOneTrigger(m.te.Header, triggeredH, numPackage, nil)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

//runImmedTriggers fires the trigger scripts of this package that react to
//packages already installed in the database (the inbound pass).
func (m *Machine) runImmedTriggers() error {
	ts := m.ts
	hdr := m.te.Header

	triggerNames, okNames := hdr.GetStringArray(header.TagTriggerName)
	triggerIndices, okIndices := hdr.GetInt32Array(header.TagTriggerIndex)
	if !okNames || !okIndices {
		return nil
	}

	alreadyRun := make([]bool, len(triggerIndices))

	var firstErr error
	for idx, name := range triggerNames {
		if idx < len(triggerIndices) {
			scriptIdx := int(triggerIndices[idx])
			if scriptIdx < len(alreadyRun) && alreadyRun[scriptIdx] {
				continue
			}
		}

		it := ts.DB.ByName(name)
		if err := it.Err(); err != nil {
			it.Close()
			return install.WrapError(install.CodeDBFail, err, "cannot scan for trigger sources")
		}
		hitCount := it.Count()
		for sourceH := it.Next(); sourceH != nil; sourceH = it.Next() {
			err := m.handleOneTrigger(sourceH, hdr, hitCount, alreadyRun)
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		err := it.Close()
		if err != nil {
			logrus.Warnf("cannot close trigger source iterator: %s", err.Error())
		}
	}
	return firstErr
}
