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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/deps"
	"github.com/holocm/libpackageinstall/header"
)

//withTriggers attaches trigger arrays to a header: each entry watches
//watched[i] and all entries share script index 0, which appends one line to
//outPath.
func withTriggers(hdr *header.Header, watched []string, indices []int32, outPath string) {
	versions := make([]string, len(watched))
	flags := make([]int32, len(watched))
	for idx := range watched {
		flags[idx] = int32(deps.FlagTriggerIn)
	}
	hdr.SetStringArray(header.TagTriggerName, watched)
	hdr.SetStringArray(header.TagTriggerVersion, versions)
	hdr.SetInt32Array(header.TagTriggerFlags, flags)
	hdr.SetInt32Array(header.TagTriggerIndex, indices)
	hdr.SetStringArray(header.TagTriggerScripts, []string{"echo fired >> " + outPath + "\n"})
	hdr.SetStringArray(header.TagTriggerScriptProg, []string{"/bin/sh"})
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(buf), "\n")
}

//Two trigger entries that both point at the same script fire it only once
//per source/target pair.
func TestTriggerDedup(t *testing.T) {
	env := setupEnv(t)
	outPath := filepath.Join(env.ts.RootDir, "fired")

	source := buildHeader("src", "1", "1", nil)
	target := buildHeader("watcher", "1", "1", nil)
	withTriggers(target, []string{"src", "src"}, []int32{0, 0}, outPath)

	te, err := env.ts.AddElement(source, nil)
	require.NoError(t, err)
	m := New(env.ts, te)
	m.sense = deps.FlagTriggerIn

	alreadyRun := make([]bool, 1)
	require.NoError(t, m.handleOneTrigger(source, target, 1, alreadyRun))

	assert.Equal(t, 1, countLines(t, outPath))
	assert.True(t, alreadyRun[0])

	//a second pass over the same pair stays deduplicated
	require.NoError(t, m.handleOneTrigger(source, target, 1, alreadyRun))
	assert.Equal(t, 1, countLines(t, outPath))
}

//Installing a package fires the matching trigger of an installed watcher
//(the outbound pass).
func TestOutboundTriggerOnInstall(t *testing.T) {
	env := setupEnv(t)
	outPath := filepath.Join(env.ts.RootDir, "fired")

	watcher := buildHeader("watcher", "1", "1", nil)
	withTriggers(watcher, []string{"a"}, []int32{0}, outPath)
	_, err := env.db.Add(env.ts.ID, watcher)
	require.NoError(t, err)

	hdr := buildHeader("a", "1", "1", nil)
	installPackage(t, env, hdr, nil)

	assert.Equal(t, 1, countLines(t, outPath))
}

//Installing a watcher fires its own triggers for already-installed packages
//(the inbound pass).
func TestInboundTriggerOnInstall(t *testing.T) {
	env := setupEnv(t)
	outPath := filepath.Join(env.ts.RootDir, "fired")

	_, err := env.db.Add(env.ts.ID, buildHeader("a", "1", "1", nil))
	require.NoError(t, err)

	watcher := buildHeader("watcher", "1", "1", nil)
	withTriggers(watcher, []string{"a"}, []int32{0}, outPath)
	installPackage(t, env, watcher, nil)

	assert.Equal(t, 1, countLines(t, outPath))
}

//A version constraint on the trigger is honored.
func TestTriggerVersionConstraint(t *testing.T) {
	env := setupEnv(t)
	outPath := filepath.Join(env.ts.RootDir, "fired")

	watcher := buildHeader("watcher", "1", "1", nil)
	withTriggers(watcher, []string{"a"}, []int32{0}, outPath)
	//require version >= 2.0
	watcher.SetStringArray(header.TagTriggerVersion, []string{"2.0"})
	watcher.SetInt32Array(header.TagTriggerFlags, []int32{
		int32(deps.FlagTriggerIn | deps.FlagGreater | deps.FlagEqual),
	})
	_, err := env.db.Add(env.ts.ID, watcher)
	require.NoError(t, err)

	installPackage(t, env, buildHeader("a", "1", "1", nil), nil)
	assert.Equal(t, 0, countLines(t, outPath))

	installPackage(t, env, buildHeader("a", "2.5", "1", nil), nil)
	assert.Equal(t, 1, countLines(t, outPath))
}

//The sense bits separate install triggers from uninstall triggers.
func TestTriggerSenseFiltering(t *testing.T) {
	env := setupEnv(t)
	outPath := filepath.Join(env.ts.RootDir, "fired")

	watcher := buildHeader("watcher", "1", "1", nil)
	withTriggers(watcher, []string{"a"}, []int32{0}, outPath)
	//watches removal, not installation
	watcher.SetInt32Array(header.TagTriggerFlags, []int32{int32(deps.FlagTriggerUn)})
	_, err := env.db.Add(env.ts.ID, watcher)
	require.NoError(t, err)

	installPackage(t, env, buildHeader("a", "1", "1", nil), nil)
	assert.Equal(t, 0, countLines(t, outPath))

	//erase the package again: now the trigger fires
	it := env.db.ByName("a")
	stored := it.Next()
	require.NotNil(t, stored)
	offset := it.Offset()
	require.NoError(t, it.Close())
	te, err := env.ts.AddElement(stored, nil)
	require.NoError(t, err)
	te.FileInfo.Record = offset
	require.NoError(t, New(env.ts, te).Run(GoalErase))

	assert.Equal(t, 1, countLines(t, outPath))
}

//The first numeric argument of a trigger script is the installed count of
//the trigger source, corrected for the operation in flight.
func TestTriggerArgs(t *testing.T) {
	env := setupEnv(t)
	outPath := filepath.Join(env.ts.RootDir, "args")

	watcher := buildHeader("watcher", "1", "1", nil)
	watcher.SetStringArray(header.TagTriggerName, []string{"a"})
	watcher.SetStringArray(header.TagTriggerVersion, []string{""})
	watcher.SetInt32Array(header.TagTriggerFlags, []int32{int32(deps.FlagTriggerIn)})
	watcher.SetInt32Array(header.TagTriggerIndex, []int32{0})
	watcher.SetStringArray(header.TagTriggerScripts, []string{"echo \"$1 $2\" >> " + outPath + "\n"})
	watcher.SetStringArray(header.TagTriggerScriptProg, []string{"/bin/sh"})
	_, err := env.db.Add(env.ts.ID, watcher)
	require.NoError(t, err)

	installPackage(t, env, buildHeader("a", "1", "1", nil), nil)

	buf, err := os.ReadFile(outPath)
	require.NoError(t, err)
	//one version of "a" installed, one version of "a" after the operation
	assert.Equal(t, "1 1\n", string(buf))
}

func TestInstallSkipsTriggersWhenFlagged(t *testing.T) {
	env := setupEnv(t)
	env.ts.Flags |= install.FlagNoTriggerIn
	outPath := filepath.Join(env.ts.RootDir, "fired")

	watcher := buildHeader("watcher", "1", "1", nil)
	withTriggers(watcher, []string{"a"}, []int32{0}, outPath)
	_, err := env.db.Add(env.ts.ID, watcher)
	require.NoError(t, err)

	installPackage(t, env, buildHeader("a", "1", "1", nil), nil)
	assert.Equal(t, 0, countLines(t, outPath))
}
