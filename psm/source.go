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
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//chkdir creates the last component of a directory path if it does not exist
//and makes sure the path is writable. Remote URL schemes are attempted best
//effort; a dash (the stdout sink) passes unchecked.
func chkdir(dpath, dname string) error {
	if dpath == "-" || dpath == "/dev/null" {
		return nil
	}

	_, err := os.Stat(dpath)
	if err != nil {
		if !os.IsNotExist(err) && !strings.Contains(dpath, "://") {
			return install.Errorf(install.CodeIO, "cannot create %%%s %s", dname, dpath)
		}
		err = os.Mkdir(dpath, 0755)
		if err != nil && !os.IsExist(err) {
			return install.Errorf(install.CodeIO, "cannot create %%%s %s", dname, dpath)
		}
	}

	if syscall.Access(dpath, 2 /* W_OK */) != nil {
		return install.Errorf(install.CodeIO, "cannot write to %%%s %s", dname, dpath)
	}
	return nil
}

//InstallSourcePackage installs a source package: its sources go into the
//configured source directory and its spec file into the configured spec
//directory. The package stream must be positioned at the start of the file.
//Returns the path of the installed spec file.
func InstallSourcePackage(ts *install.Transaction, file *os.File) (specFile string, err error) {
	pkg, err := header.ReadPackage(file)
	if err != nil {
		return "", install.WrapError(install.CodeIO, err, "cannot read package")
	}
	hdr := pkg.Header

	if !hdr.Has(header.TagSourcePackage) && !pkg.Lead.IsSource() {
		return "", install.Errorf(install.CodeNotSRPM, "source package expected, binary found")
	}

	//synthesize a single-element transaction
	te, err := ts.AddElement(hdr, file)
	if err != nil {
		return "", install.WrapError(install.CodeIO, err, "cannot build file info")
	}
	fi := te.FileInfo

	loadHeaderMacros(hdr)

	//source packages carry no usable digests and no leading slash on their
	//member paths; every file is simply created, owned by the user and group
	//the header names, or by the caller where the header names none
	fi.Digests = nil
	fi.MapFlags = install.MapPath | install.MapMode | install.MapUID | install.MapGID
	fi.UID = os.Getuid()
	fi.GID = os.Getgid()
	fi.StripLen = 0
	fi.EnsureOwners()
	fi.EnsureActions(install.ActionCreate)
	fi.BuildArchivePaths(hdr)

	//the spec file is flagged when the package carries a build cookie,
	//otherwise it is found by its extension
	specIdx := fi.FC()
	if hdr.Has(header.TagCookie) {
		for idx := 0; idx < fi.FC(); idx++ {
			if idx < len(fi.Flags) && fi.Flags[idx]&header.FileFlagSpecfile != 0 {
				specIdx = idx
				break
			}
		}
	}
	if specIdx == fi.FC() {
		for idx, path := range fi.ArchivePaths {
			if strings.HasSuffix(path, ".spec") {
				specIdx = idx
				break
			}
		}
	}
	if specIdx == fi.FC() {
		return "", install.Errorf(install.CodeNoSpec, "source package contains no .spec file")
	}

	sourceDir := install.Macros.Path(ts.RootDir, "%{_sourcedir}")
	if sourceDir == "" || strings.HasPrefix(sourceDir, "%") {
		return "", install.Errorf(install.CodeIO, "%%_sourcedir is not configured")
	}
	err = chkdir(sourceDir, "sourcedir")
	if err != nil {
		return "", err
	}

	specDir := install.Macros.Path(ts.RootDir, "%{_specdir}")
	if specDir == "" || strings.HasPrefix(specDir, "%") {
		return "", install.Errorf(install.CodeIO, "%%_specdir is not configured")
	}
	err = chkdir(specDir, "specdir")
	if err != nil {
		return "", err
	}

	//rewrite the directory table: sources materialize in the source
	//directory, the spec file in the spec directory
	fi.DirNames = []string{sourceDir + "/", specDir + "/"}
	fi.DirIndexes = make([]int32, fi.FC())
	fi.DirIndexes[specIdx] = 1
	fi.Basenames = append([]string(nil), fi.ArchivePaths...)

	specFile = specDir + "/" + fi.Basenames[specIdx]

	m := New(ts, te)
	m.goal = GoalInstall
	m.stepName = GoalInstall.String()

	rc := m.Stage(StageProcess)
	m.Stage(StageFini)
	if rc != nil {
		return "", rc
	}

	logrus.Debugf("installed source package %s, spec file %s", hdr.NEVR(), specFile)
	return specFile, nil
}
