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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//buildSourceHeader assembles a source package header with a flat file list.
func buildSourceHeader(name string, fileNames []string, contents []string) (*header.Header, []testFile) {
	hdr := header.New()
	hdr.SetString(header.TagName, name)
	hdr.SetString(header.TagVersion, "1.0")
	hdr.SetString(header.TagRelease, "1")
	hdr.SetString(header.TagPayloadCompressor, "gzip")
	hdr.SetInt32(header.TagSourcePackage, 1)

	var (
		files  []testFile
		modes  []int16
		sizes  []int32
		mtimes []int32
		users  []string
		groups []string
		flags  []int32
	)
	for idx, fileName := range fileNames {
		files = append(files, testFile{path: fileName, content: contents[idx], mode: 0o100644})
		modes = append(modes, -32348 /* 0100644 */)
		sizes = append(sizes, int32(len(contents[idx])))
		mtimes = append(mtimes, 1000000000)
		users = append(users, "root")
		groups = append(groups, "root")
		flags = append(flags, 0)
	}
	hdr.SetStringArray(header.TagOldFileNames, fileNames)
	hdr.SetInt16Array(header.TagFileModes, modes)
	hdr.SetInt32Array(header.TagFileSizes, sizes)
	hdr.SetInt32Array(header.TagFileMtimes, mtimes)
	hdr.SetStringArray(header.TagFileUserName, users)
	hdr.SetStringArray(header.TagFileGroupName, groups)
	hdr.SetInt32Array(header.TagFileFlags, flags)
	return hdr, files
}

func defineDirMacros(t *testing.T) (sourceDir, specDir string) {
	t.Helper()
	base := t.TempDir()
	sourceDir = filepath.Join(base, "S")
	specDir = filepath.Join(base, "P")
	install.Macros.Define("_sourcedir", sourceDir)
	install.Macros.Define("_specdir", specDir)
	t.Cleanup(func() {
		install.Macros.Undefine("_sourcedir")
		install.Macros.Undefine("_specdir")
	})
	return sourceDir, specDir
}

func TestInstallSourcePackage(t *testing.T) {
	env := setupEnv(t)
	env.ts.RootDir = ""
	sourceDir, specDir := defineDirMacros(t)

	hdr, files := buildSourceHeader("foo",
		[]string{"foo.spec", "foo.tar.gz"},
		[]string{"Name: foo\n", "tarball"})
	payload := buildPayload(t, files, func(path string) string { return path })
	_, file := writePackageFile(t, hdr, header.LeadTypeSource, payload)
	_, err := file.Seek(0, 0)
	require.NoError(t, err)

	specFile, err := InstallSourcePackage(env.ts, file)
	require.NoError(t, err)
	assert.Equal(t, specDir+"/foo.spec", specFile)

	//sources land in the source directory, the spec in the spec directory
	buf, err := os.ReadFile(filepath.Join(sourceDir, "foo.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "tarball", string(buf))
	buf, err = os.ReadFile(filepath.Join(specDir, "foo.spec"))
	require.NoError(t, err)
	assert.Equal(t, "Name: foo\n", string(buf))
}

func TestInstallSourcePackageBySpecfileFlag(t *testing.T) {
	env := setupEnv(t)
	env.ts.RootDir = ""
	_, specDir := defineDirMacros(t)

	//with a build cookie, the spec is found by its file flag, not by its
	//extension
	hdr, files := buildSourceHeader("bar",
		[]string{"bar.tar.gz", "buildme"},
		[]string{"tarball", "spec by flag"})
	hdr.SetString(header.TagCookie, "host 123")
	hdr.SetInt32Array(header.TagFileFlags, []int32{0, header.FileFlagSpecfile})

	payload := buildPayload(t, files, func(path string) string { return path })
	_, file := writePackageFile(t, hdr, header.LeadTypeSource, payload)
	_, err := file.Seek(0, 0)
	require.NoError(t, err)

	specFile, err := InstallSourcePackage(env.ts, file)
	require.NoError(t, err)
	assert.Equal(t, specDir+"/buildme", specFile)
}

func TestInstallSourcePackageRejectsBinary(t *testing.T) {
	env := setupEnv(t)
	defineDirMacros(t)

	hdr := buildHeader("a", "1", "1", nil)
	_, file := writePackageFile(t, hdr, header.LeadTypeBinary, buildPayload(t, nil, binaryMemberName))
	_, err := file.Seek(0, 0)
	require.NoError(t, err)

	_, err = InstallSourcePackage(env.ts, file)
	require.Error(t, err)
	assert.Equal(t, install.CodeNotSRPM, install.CodeOf(err))
}

func TestInstallSourcePackageWithoutSpec(t *testing.T) {
	env := setupEnv(t)
	env.ts.RootDir = ""
	defineDirMacros(t)

	hdr, files := buildSourceHeader("baz",
		[]string{"baz.tar.gz"},
		[]string{"tarball"})
	payload := buildPayload(t, files, func(path string) string { return path })
	_, file := writePackageFile(t, hdr, header.LeadTypeSource, payload)
	_, err := file.Seek(0, 0)
	require.NoError(t, err)

	_, err = InstallSourcePackage(env.ts, file)
	require.Error(t, err)
	assert.Equal(t, install.CodeNoSpec, install.CodeOf(err))
}

func TestChkdir(t *testing.T) {
	base := t.TempDir()

	//creates the last missing component
	target := filepath.Join(base, "newdir")
	require.NoError(t, chkdir(target, "sourcedir"))
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	//an existing directory passes
	require.NoError(t, chkdir(target, "sourcedir"))

	//the sink path passes unchecked
	assert.NoError(t, chkdir("-", "sourcedir"))
	assert.NoError(t, chkdir("/dev/null", "sourcedir"))

	//more than one missing component fails
	assert.Error(t, chkdir(filepath.Join(base, "a/b/c"), "sourcedir"))
}
