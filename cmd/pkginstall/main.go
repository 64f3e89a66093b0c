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

//Command pkginstall drives the package state machine from the command line:
//it installs package files, erases or repackages installed packages, and
//bootstraps source packages into the configured source/spec directories.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/db"
	"github.com/holocm/libpackageinstall/header"
	"github.com/holocm/libpackageinstall/psm"
)

func main() {
	var (
		rootDir   = flag.String("root", "/", "root directory to install into")
		dbPath    = flag.String("dbpath", "/var/lib/pkg/packages.sqlite", "package database")
		macroFile = flag.String("macros", "", "TOML file with a [macros] table")
		erase     = flag.Bool("erase", false, "erase the named packages")
		repackage = flag.Bool("repackage", false, "repackage the named packages")
		sourcePkg = flag.Bool("source", false, "install source packages")
		testOnly  = flag.Bool("test", false, "run all checks without modifying anything")
		justDB    = flag.Bool("justdb", false, "update only the database, not the filesystem")
		verbose   = flag.BoolP("verbose", "v", false, "verbose output")
		debugFlag = flag.Bool("debug", false, "debug output (also keeps scriptlet files)")
	)
	flag.Parse()

	switch {
	case *debugFlag:
		logrus.SetLevel(logrus.DebugLevel)
	case *verbose:
		logrus.SetLevel(logrus.InfoLevel)
	default:
		logrus.SetLevel(logrus.WarnLevel)
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [options] <package>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *macroFile != "" {
		err := install.Macros.LoadMacroFile(*macroFile)
		if err != nil {
			logrus.Fatal(err.Error())
		}
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		logrus.Fatal(err.Error())
	}
	defer database.Close()

	ts := install.NewTransaction(*rootDir, database)
	ts.UseChroot = *rootDir != "/" && *rootDir != ""
	if *testOnly {
		ts.Flags |= install.FlagTest
	}
	if *justDB {
		ts.Flags |= install.FlagJustDB
	}
	ts.Notify = func(el *install.Element, what install.CallbackWhat, amount, total uint64) {
		logrus.Debugf("%s: callback %d (%d/%d)", el.NEVR(), what, amount, total)
	}

	failed := false
	for _, arg := range flag.Args() {
		var err error
		switch {
		case *erase:
			err = eraseOne(ts, arg, psm.GoalErase)
		case *repackage:
			err = eraseOne(ts, arg, psm.GoalRepackage)
		case *sourcePkg:
			err = installSourceOne(ts, arg)
		default:
			err = installOne(ts, arg)
		}
		if err != nil {
			showError(fmt.Errorf("%s: %s", arg, err.Error()))
			failed = true
		}
	}
	if failed {
		os.Exit(2)
	}
}

func installOne(ts *install.Transaction, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	pkg, err := header.ReadPackage(file)
	if err != nil {
		return err
	}
	if pkg.Lead.IsSource() || pkg.Header.Has(header.TagSourcePackage) {
		return fmt.Errorf("%s is a source package (use --source)", path)
	}

	te, err := ts.AddElement(pkg.Header, file)
	if err != nil {
		return err
	}
	return psm.New(ts, te).Run(psm.GoalInstall)
}

func installSourceOne(ts *install.Transaction, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	specFile, err := psm.InstallSourcePackage(ts, file)
	if err != nil {
		return err
	}
	fmt.Println(specFile)
	return nil
}

func eraseOne(ts *install.Transaction, name string, goal psm.Goal) error {
	it := ts.DB.ByName(name)
	defer it.Close()

	hdr := it.Next()
	if hdr == nil {
		return fmt.Errorf("package %s is not installed", name)
	}
	offset := it.Offset()

	te, err := ts.AddElement(hdr, nil)
	if err != nil {
		return err
	}
	te.FileInfo.Record = offset
	return psm.New(ts, te).Run(goal)
}

func showError(err error) {
	fmt.Fprintf(os.Stderr, "\x1b[31m\x1b[1m!!\x1b[0m %s\n", err.Error())
}
