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

//Package scriptlet executes the scripts embedded in package headers: pre and
//post scripts, their uninstall counterparts, and triggers. A script is
//materialized into a temporary file, then run in a child process that is
//placed inside the transaction's root directory when the transaction uses a
//real chroot.
package scriptlet

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//defaultPath is the PATH exported to scriptlets unless the
//_install_script_path macro overrides it.
const defaultPath = "/sbin:/bin:/usr/sbin:/usr/bin:/usr/X11R6/bin"

//NoArg marks an unset numeric scriptlet argument.
const NoArg = -1

//SectionName returns the conventional name for the scriptlet stored under
//the given tag.
func SectionName(tag header.Tag) string {
	switch tag {
	case header.TagPreIn:
		return "%pre"
	case header.TagPostIn:
		return "%post"
	case header.TagPreUn:
		return "%preun"
	case header.TagPostUn:
		return "%postun"
	case header.TagVerifyScript:
		return "%verify"
	}
	return "%unknownscript"
}

//Runner executes scriptlets on behalf of one transaction.
type Runner struct {
	TS *install.Transaction
}

//willChroot checks whether the child process will be placed into the
//transaction's root directory. A transaction without UseChroot runs its
//scriptlets against the host root, the same way the driver skips its own
//chroot then.
func (r *Runner) willChroot() bool {
	ts := r.TS
	return ts.UseChroot && !ts.ChrootDone() && ts.RootDir != "" && ts.RootDir != "/"
}

//RunFromHeader looks up the script and interpreter stored under the given
//tags and runs them. A header without both is a successful no-op. arg1 and
//arg2 are the numeric arguments passed after the script path (NoArg omits
//them).
func (r *Runner) RunFromHeader(hdr *header.Header, scriptTag, progTag header.Tag, arg1, arg2 int) error {
	script, _ := hdr.GetString(scriptTag)

	var prog []string
	if progStr, ok := hdr.GetString(progTag); ok {
		prog = []string{progStr}
	} else if progArr, ok := hdr.GetStringArray(progTag); ok {
		prog = progArr
	}

	if prog == nil && script == "" {
		return nil
	}
	return r.Run(hdr, SectionName(scriptTag), prog, script, arg1, arg2)
}

//Run executes one scriptlet. prog is the interpreter argv (nil selects
///bin/sh); script is the inline script text ("" if the header only names an
//interpreter). A nonzero exit status is a failure; a child that cannot be
//reaped is logged and tolerated.
func (r *Runner) Run(hdr *header.Header, section string, prog []string, script string, arg1, arg2 int) error {
	if prog == nil && script == "" {
		return nil
	}
	ts := r.TS
	name, version, release := hdr.NVR()
	debug := logrus.IsLevelEnabled(logrus.DebugLevel)

	logrus.Debugf("running %s scriptlet for %s-%s-%s", section, name, version, release)

	argv := prog
	if argv == nil {
		argv = []string{"/bin/sh"}
	} else {
		argv = append([]string(nil), argv...)
	}

	var scriptPath string
	if script != "" {
		//the temp file must be reachable from inside the chroot, so it is
		//created below the root directory as long as the chroot has not
		//been entered yet
		dir := ""
		if ts.ChrootDone() {
			dir = "/"
		} else if ts.RootDir != "" && ts.RootDir != "/" {
			dir = ts.RootDir
		}
		file, err := os.CreateTemp(dir, ".script-")
		if err != nil {
			return install.WrapError(install.CodeScriptFail, err, "cannot create scriptlet file")
		}
		scriptPath = file.Name()

		if debug && (argv[0] == "/bin/sh" || argv[0] == "/bin/bash") {
			_, _ = file.WriteString("set -x\n")
		}
		_, err = file.WriteString(script)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(scriptPath)
			return install.WrapError(install.CodeScriptFail, err, "cannot write scriptlet file")
		}
		if !debug {
			defer os.Remove(scriptPath)
		}

		//inside the chroot, the path loses the root directory prefix
		childPath := scriptPath
		if r.willChroot() {
			childPath = "/" + strings.TrimPrefix(filepath.ToSlash(strings.TrimPrefix(scriptPath, ts.RootDir)), "/")
		}
		argv = append(argv, childPath)

		if arg1 != NoArg {
			argv = append(argv, fmt.Sprintf("%d", arg1))
		}
		if arg2 != NoArg {
			argv = append(argv, fmt.Sprintf("%d", arg2))
		}
	}

	cmd := &exec.Cmd{
		Path: argv[0],
		Args: argv,
		Dir:  "/",
		Env:  scriptEnvironment(hdr),
	}
	if ts.ScriptOutput != nil {
		cmd.Stdout = ts.ScriptOutput
		cmd.Stderr = ts.ScriptOutput
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stdout
	}
	if r.willChroot() {
		cmd.SysProcAttr = &syscall.SysProcAttr{Chroot: ts.RootDir}
	}

	err := cmd.Start()
	if err != nil {
		logrus.Errorf("execution of %s scriptlet from %s-%s-%s failed: %s",
			section, name, version, release, err.Error())
		return install.WrapError(install.CodeScriptFail, err, "cannot start scriptlet")
	}

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		logrus.Errorf("execution of %s scriptlet from %s-%s-%s failed, exit status %d",
			section, name, version, release, exitErr.ExitCode())
		return install.Errorf(install.CodeScriptFail,
			"%s scriptlet of %s-%s-%s exited with status %d",
			section, name, version, release, exitErr.ExitCode())
	}

	//a child that cannot be reaped has still run; this is logged but does
	//not fail the operation
	logrus.Warnf("execution of %s scriptlet from %s-%s-%s could not be reaped: %s",
		section, name, version, release, err.Error())
	return nil
}

//scriptEnvironment assembles the child environment: the inherited
//environment with PATH replaced, plus the install prefix variables.
func scriptEnvironment(hdr *header.Header) []string {
	path := "PATH=" + defaultPath
	if expanded, ok := install.Macros.Lookup("_install_script_path"); ok {
		expanded = install.Macros.Expand(expanded)
		if expanded != "" && !strings.HasPrefix(expanded, "%") {
			path = "PATH=" + expanded
		}
	}

	env := []string{path}
	for _, pair := range os.Environ() {
		if !strings.HasPrefix(pair, "PATH=") && !strings.HasPrefix(pair, "RPM_INSTALL_PREFIX") {
			env = append(env, pair)
		}
	}

	var prefixes []string
	if arr, ok := hdr.GetStringArray(header.TagInstPrefixes); ok {
		prefixes = arr
	} else if prefix, ok := hdr.GetString(header.TagInstallPrefix); ok {
		prefixes = []string{prefix}
	}
	for idx, prefix := range prefixes {
		env = append(env, fmt.Sprintf("RPM_INSTALL_PREFIX%d=%s", idx, prefix))
		//backwards compatibility
		if idx == 0 {
			env = append(env, "RPM_INSTALL_PREFIX="+prefix)
		}
	}

	return env
}
