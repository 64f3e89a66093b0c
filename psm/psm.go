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

//Package psm is the package state machine: the driver that carries one
//package of a transaction through an install, erase or repackage operation.
//It pulls metadata through the header package, streams payloads through the
//fsm package, runs scripts through the scriptlet package and records the
//outcome in the package database.
package psm

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/deps"
	"github.com/holocm/libpackageinstall/fsm"
	"github.com/holocm/libpackageinstall/header"
	"github.com/holocm/libpackageinstall/scriptlet"
)

//Goal selects the operation that a Machine performs on its package.
type Goal int

//Goals.
const (
	GoalInstall Goal = iota + 1
	GoalErase
	GoalRepackage
)

func (g Goal) String() string {
	switch g {
	case GoalInstall:
		return "install"
	case GoalErase:
		return "erase"
	case GoalRepackage:
		return "repackage"
	default:
		return "unknown"
	}
}

//Stage is one step of the state machine. The Run method sequences the
//composite stages; callers that need finer control (like the source package
//bootstrap) drive single stages through the Stage method.
type Stage int

//Stages.
const (
	StageInit Stage = iota + 1
	StagePre
	StageProcess
	StagePost
	StageFini
	StageChrootIn
	StageChrootOut
	StageScript
	StageTriggers
	StageImmedTriggers
	StagePayloadFlags
	StageDBLoad
	StageDBAdd
	StageDBRemove
	StageCommit
	StageNotify
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StagePre:
		return "pre"
	case StageProcess:
		return "process"
	case StagePost:
		return "post"
	case StageFini:
		return "fini"
	case StageChrootIn:
		return "chrootin"
	case StageChrootOut:
		return "chrootout"
	case StageScript:
		return "script"
	case StageTriggers:
		return "triggers"
	case StageImmedTriggers:
		return "immedtriggers"
	case StagePayloadFlags:
		return "payloadflags"
	case StageDBLoad:
		return "dbload"
	case StageDBAdd:
		return "dbadd"
	case StageDBRemove:
		return "dbremove"
	case StageCommit:
		return "commit"
	case StageNotify:
		return "notify"
	default:
		return "unknown"
	}
}

//Machine is the per-invocation scope of the state machine. It must be passed
//explicitly into every stage; nothing here is shared between invocations
//except the transaction it belongs to.
type Machine struct {
	ts *install.Transaction
	te *install.Element
	fi *install.FileInfo

	goal     Goal
	stepName string

	scriptTag       header.Tag
	progTag         header.Tag
	sense           deps.Flags
	countCorrection int
	//scriptArg is the count of installed versions of this package after the
	//current operation completes.
	scriptArg      int
	npkgsInstalled int

	chrootDone bool

	//oh is the scratch header slot: the previously installed variant during
	//a multilib install, or the regenerated original during repackage.
	oh *header.Header

	ioFlags    string
	fd         *os.File
	pkgPath    string
	failedFile string

	what   install.CallbackWhat
	amount uint64
	total  uint64
}

//New prepares a state machine for one element of the given transaction.
func New(ts *install.Transaction, te *install.Element) *Machine {
	return &Machine{ts: ts, te: te, fi: te.FileInfo}
}

//Run performs a whole operation: INIT, PRE, PROCESS and POST in order, each
//only if its predecessors succeeded, then FINI unconditionally.
func (m *Machine) Run(goal Goal) error {
	m.goal = goal
	m.stepName = goal.String()

	rc := m.Stage(StageInit)
	if rc == nil {
		rc = m.Stage(StagePre)
	}
	if rc == nil {
		rc = m.Stage(StageProcess)
	}
	if rc == nil {
		rc = m.Stage(StagePost)
	}
	m.finish(rc)
	return rc
}

//Stage advances the state machine by one sub-stage.
func (m *Machine) Stage(stage Stage) error {
	switch stage {
	case StageInit:
		return m.init()
	case StagePre:
		return m.pre()
	case StageProcess:
		return m.process()
	case StagePost:
		return m.post()
	case StageFini:
		m.finish(nil)
		return nil
	case StageChrootIn:
		return m.chrootIn()
	case StageChrootOut:
		return m.chrootOut()
	case StageScript:
		return m.script()
	case StageTriggers:
		return m.runTriggers()
	case StageImmedTriggers:
		return m.runImmedTriggers()
	case StagePayloadFlags:
		return m.payloadFlags()
	case StageDBLoad:
		return m.dbLoad()
	case StageDBAdd:
		return m.dbAdd()
	case StageDBRemove:
		return m.dbRemove()
	case StageCommit:
		return m.commit()
	case StageNotify:
		m.notify()
		return nil
	default:
		return errors.Errorf("unknown stage %d", stage)
	}
}

//init computes the script argument, finds a previously installed variant of
//the package, prepares the per-file tables, and (for repackage) opens the
//output file.
func (m *Machine) init() error {
	ts, fi := m.ts, m.fi

	logrus.Debugf("%s: %s has %d files, test = %v",
		m.stepName, m.te.NEVR(), fi.FC(), ts.Flags&install.FlagTest != 0)

	loadHeaderMacros(m.te.Header)

	//scriptlets receive the number of versions of this package that will be
	//installed once the operation has finished
	var err error
	m.npkgsInstalled, err = ts.DB.CountPackages(m.te.Name())
	if err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot count installed versions")
	}

	switch m.goal {
	case GoalInstall:
		m.scriptArg = m.npkgsInstalled + 1

		//an already-installed record with the same version and release is
		//replaced, not duplicated
		version, _ := m.te.Header.GetString(header.TagVersion)
		release, _ := m.te.Header.GetString(header.TagRelease)
		it := ts.DB.ByName(m.te.Name())
		it.AddFilter(header.TagVersion, version)
		it.AddFilter(header.TagRelease, release)
		if oh := it.Next(); oh != nil {
			fi.Record = it.Offset()
			if ts.Flags&install.FlagMultilib != 0 {
				m.oh = oh.Copy()
			}
		}
		err := it.Close()
		if err != nil {
			return install.WrapError(install.CodeDBFail, err, "cannot scan for installed variant")
		}

		fi.EnsureStates()

		if ts.Flags&install.FlagJustDB != 0 || fi.FC() <= 0 {
			return nil
		}

		//old format relocateable packages need the entire default prefix
		//stripped to form the archive path list, all other packages just
		//lose the leading slash
		if prefix, ok := m.te.Header.GetString(header.TagDefaultPrefix); ok {
			fi.StripLen = len(prefix) + 1
		} else {
			fi.StripLen = 1
		}
		fi.MapFlags = install.MapPath | install.MapMode | install.MapUID | install.MapGID
		fi.BuildArchivePaths(m.te.Header)
		fi.EnsureOwners()

	case GoalErase, GoalRepackage:
		m.scriptArg = m.npkgsInstalled - 1

		//retrieve the installed header
		err := m.dbLoad()
		if err != nil {
			return err
		}
	}

	if m.goal == GoalRepackage {
		//open the output package for writing
		dir := install.Macros.Expand("%{_repackage_dir}")
		if dir == "" || dir[0] == '%' {
			dir = "/var/spool/repackage"
		}
		arch, _ := m.te.Header.GetString(header.TagArch)
		name, version, release := m.te.Header.NVR()
		m.pkgPath = filepath.Join(dir, fmt.Sprintf("%s-%s-%s.%s.rpm", name, version, release, arch))

		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return install.WrapError(install.CodeIO, err, "cannot create repackage directory")
		}
		m.fd, err = os.Create(m.pkgPath)
		if err != nil {
			return install.WrapError(install.CodeIO, err, "cannot create repackaged package")
		}
	}

	return nil
}

//pre enters the chroot and runs the pre-operation scripts and triggers; for
//repackage it writes lead, signature and header of the output package.
func (m *Machine) pre() error {
	ts := m.ts
	if ts.Flags&install.FlagTest != 0 {
		return nil
	}

	//change root directory if requested and not already done
	err := m.chrootIn()
	if err != nil {
		return err
	}

	switch m.goal {
	case GoalInstall:
		m.scriptTag = header.TagPreIn
		m.progTag = header.TagPreInProg

		//%triggerprein is not supported

		if ts.Flags&install.FlagNoPre == 0 {
			err := m.script()
			if err != nil {
				logrus.Errorf("%s: %s scriptlet failed, skipping %s",
					m.stepName, scriptlet.SectionName(m.scriptTag), m.te.NEVR())
				return err
			}
		}

	case GoalErase:
		m.scriptTag = header.TagPreUn
		m.progTag = header.TagPreUnProg
		m.sense = deps.FlagTriggerUn
		m.countCorrection = -1

		if ts.Flags&install.FlagNoTriggerUn == 0 {
			//run triggers in other package(s) this package sets off
			err := m.runTriggers()
			if err != nil {
				return err
			}
			//run triggers in this package other package(s) set off
			err = m.runImmedTriggers()
			if err != nil {
				return err
			}
		}

		if ts.Flags&install.FlagNoPreun == 0 {
			err := m.script()
			if err != nil {
				return err
			}
		}

	case GoalRepackage:
		err := m.writeRepackageHeader()
		if err != nil {
			return err
		}
	}

	return nil
}

//writeRepackageHeader regenerates the original metadata header and writes
//lead, signature and header sections into the output file.
func (m *Machine) writeRepackageHeader() error {
	//regenerate the original header from the stored section image
	if blob, ok := m.te.Header.GetBin(header.TagHeaderImmutable); ok {
		oh, err := header.Decode(blob)
		if err != nil {
			return install.WrapError(install.CodeIO, err, "cannot regenerate original header")
		}
		m.oh = oh
	} else if blob, ok := m.te.Header.GetBin(header.TagHeaderImage); ok {
		oh, err := header.Decode(blob)
		if err != nil {
			return install.WrapError(install.CodeIO, err, "cannot regenerate original header")
		}
		m.oh = oh
	} else {
		m.oh = m.te.Header.Copy()
	}

	//retrieve type of payload compression
	err := m.payloadFlags()
	if err != nil {
		return err
	}

	//stamp the removal transaction id, then encode the metadata section
	m.oh.SetInt32(header.TagRemoveTid, m.ts.ID)
	encoded := m.oh.Encode(header.TagHeaderImmutable)

	lead := header.NewLead(m.te.NEVR(), header.LeadTypeBinary, archNum(m.oh), osNum(m.oh))
	err = lead.WriteTo(m.fd)
	if err != nil {
		return install.WrapError(install.CodeIO, err, "unable to write package lead")
	}

	sig := header.RegenerateSignature(m.te.Header, encoded)
	_, err = m.fd.Write(header.EncodeSignature(sig))
	if err != nil {
		return install.WrapError(install.CodeIO, err, "unable to write package signature")
	}

	_, err = m.fd.Write(encoded)
	return install.WrapError(install.CodeIO, err, "unable to write package header")
}

//process resolves file ownership and drives the file state machine in the
//mode matching the goal.
func (m *Machine) process() error {
	ts, fi := m.ts, m.fi
	if ts.Flags&install.FlagTest != 0 {
		return nil
	}

	switch m.goal {
	case GoalInstall:
		if ts.Flags&install.FlagJustDB != 0 {
			return nil
		}

		//synthesize callbacks for packages with no files
		if fi.FC() <= 0 {
			ts.NotifyElement(m.te, install.CallbackInstStart, 0, 100)
			ts.NotifyElement(m.te, install.CallbackInstProgress, 100, 100)
			return nil
		}

		m.resolveOwners()

		err := m.payloadFlags()
		if err != nil {
			return err
		}
		if m.te.Fd == nil {
			return install.Errorf(install.CodeIO, "no package stream for %s", m.te.NEVR())
		}

		stream, err := payloadReader(m.ioFlags, m.te.Fd)
		if err != nil {
			return install.WrapError(install.CodeUnpackFail, err, "cannot open payload")
		}

		ts.NotifyElement(m.te, install.CallbackInstStart, 0, uint64(archiveTotal(fi)))
		result, err := fsm.Run(fsm.ModeInstall, ts, fi, stream, nil)
		closeErr := stream.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrap(closeErr, "cannot finish payload")
		}
		m.failedFile = result.FailedFile

		if err == nil {
			err = m.commit()
		}
		if err != nil {
			if m.failedFile != "" {
				logrus.Errorf("unpacking of archive failed on file %s: %s", m.failedFile, err.Error())
			} else {
				logrus.Errorf("unpacking of archive failed: %s", err.Error())
			}
			m.what = install.CallbackUnpackError
			m.amount = 0
			m.total = 0
			m.notify()
			return install.WrapError(install.CodeUnpackFail, err, "cannot unpack archive")
		}

		//a payload whose size disagrees with the header is surfaced but does
		//not fail the install
		if fi.ArchiveSize != 0 && result.ArchiveSize != uint64(fi.ArchiveSize) {
			logrus.Warnf("%s: %s", m.te.NEVR(),
				install.Errorf(install.CodeBadSize, "expected %d payload bytes, got %d",
					fi.ArchiveSize, result.ArchiveSize).Error())
		}

		m.what = install.CallbackInstProgress
		m.amount = uint64(archiveTotal(fi))
		m.total = m.amount
		m.notify()

	case GoalErase:
		if ts.Flags&(install.FlagJustDB|install.FlagApplyOnly) != 0 || fi.FC() <= 0 {
			return nil
		}

		fc := uint64(fi.FC())
		m.what = install.CallbackUninstStart
		m.amount = fc
		m.total = fc
		m.notify()

		result, err := fsm.Run(fsm.ModeErase, ts, fi, nil, nil)
		m.failedFile = result.FailedFile

		m.what = install.CallbackUninstStop
		m.amount = 0
		m.total = fc
		m.notify()

		if err != nil {
			return install.WrapError(install.CodeUnpackFail, err, "cannot erase files")
		}

	case GoalRepackage:
		//every file is streamed out regardless of its install-time action
		savedActions := fi.Actions
		fi.Actions = nil
		fi.EnsureActions(install.ActionCopyOut)
		defer func() {
			fi.Actions = savedActions
		}()

		if m.fd == nil {
			return install.Errorf(install.CodeIO, "no output stream for %s", m.te.NEVR())
		}
		stream, err := payloadWriter(m.ioFlags, m.fd)
		if err != nil {
			return install.WrapError(install.CodeIO, err, "cannot open payload stream")
		}
		result, err := fsm.Run(fsm.ModeBuild, ts, fi, nil, stream)
		closeErr := stream.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrap(closeErr, "cannot finish payload")
		}
		m.failedFile = result.FailedFile
		if err != nil {
			return install.WrapError(install.CodeIO, err, "cannot write payload")
		}
	}

	return nil
}

//resolveOwners maps the symbolic file owners onto numeric ids. Unknown names
//fall back to root, with the setuid/setgid bit cleared on the affected file.
func (m *Machine) resolveOwners() {
	fi := m.fi
	fi.EnsureOwners()

	for idx := 0; idx < fi.FC(); idx++ {
		if idx < len(fi.Users) {
			uid, err := lookupUID(fi.Users[idx])
			if err != nil {
				logrus.Warnf("user %s does not exist - using root", fi.Users[idx])
				uid = 0
				fi.Modes[idx] &^= 0x0800 //turn off the suid bit
			}
			fi.UIDs[idx] = uid
		}
		if idx < len(fi.Groups) {
			gid, err := lookupGID(fi.Groups[idx])
			if err != nil {
				logrus.Warnf("group %s does not exist - using root", fi.Groups[idx])
				gid = 0
				fi.Modes[idx] &^= 0x0400 //turn off the sgid bit
			}
			fi.GIDs[idx] = gid
		}
	}
}

func lookupUID(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(u.Uid)
}

func lookupGID(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(g.Gid)
}

//archiveTotal picks the progress total for install notifications.
func archiveTotal(fi *install.FileInfo) uint32 {
	if fi.ArchiveSize != 0 {
		return fi.ArchiveSize
	}
	return 100
}

//post updates the database record, runs the post-operation scripts and
//triggers, and leaves the chroot.
func (m *Machine) post() error {
	ts, fi := m.ts, m.fi
	if ts.Flags&install.FlagTest != 0 {
		return nil
	}

	defer func() {
		//restore root directory if changed
		_ = m.chrootOut()
	}()

	switch m.goal {
	case GoalInstall:
		fi.EnsureStates()
		if fi.States != nil {
			m.te.Header.SetChars(header.TagFileStates, fi.States)
		}
		m.te.Header.SetInt32(header.TagInstallTime, int32(time.Now().Unix()))

		if ts.Flags&install.FlagMultilib != 0 && m.oh != nil {
			//fold the multilib color bits and the file list of the new
			//variant into the already-installed record
			newBits, okNew := m.te.Header.GetInt32(header.TagMultilibs)
			oldBits, okOld := m.oh.GetInt32(header.TagMultilibs)
			if okNew && okOld {
				m.oh.SetInt32(header.TagMultilibs, oldBits|newBits)
			}
			err := mergeFiles(fi, m.oh, m.te.Header)
			if err != nil {
				return err
			}
		}

		//if this package has already been installed, remove it from the
		//database before adding the new one
		if fi.Record != 0 && ts.Flags&install.FlagApplyOnly == 0 {
			err := m.dbRemove()
			if err != nil {
				return err
			}
		}
		err := m.dbAdd()
		if err != nil {
			return err
		}

		m.scriptTag = header.TagPostIn
		m.progTag = header.TagPostInProg
		m.sense = deps.FlagTriggerIn
		m.countCorrection = 0

		if ts.Flags&install.FlagNoPost == 0 {
			err := m.script()
			if err != nil {
				return err
			}
		}
		if ts.Flags&install.FlagNoTriggerIn == 0 {
			//run triggers in other package(s) this package sets off
			err := m.runTriggers()
			if err != nil {
				return err
			}
			//run triggers in this package other package(s) set off
			err = m.runImmedTriggers()
			if err != nil {
				return err
			}
		}
		if ts.Flags&install.FlagApplyOnly == 0 {
			err := m.markReplacedFiles()
			if err != nil {
				return err
			}
		}

	case GoalErase:
		m.scriptTag = header.TagPostUn
		m.progTag = header.TagPostUnProg
		m.sense = deps.FlagTriggerPostUn
		m.countCorrection = -1

		if ts.Flags&install.FlagNoPostun == 0 {
			err := m.script()
			if err != nil {
				//a failing %postun does not abort the erasure
				logrus.Warnf("%s: %s scriptlet failed for %s, ignoring",
					m.stepName, scriptlet.SectionName(m.scriptTag), m.te.NEVR())
			}
		}
		if ts.Flags&install.FlagNoTriggerPostun == 0 {
			err := m.runTriggers()
			if err != nil {
				return err
			}
		}
		if ts.Flags&install.FlagApplyOnly == 0 {
			err := m.dbRemove()
			if err != nil {
				return err
			}
		}
	}

	return nil
}

//finish is the FINI stage: it leaves the chroot, closes the output file,
//releases the per-invocation tables and reports a failure to the callback.
func (m *Machine) finish(rc error) {
	_ = m.chrootOut()

	if m.fd != nil {
		m.fd.Close()
		m.fd = nil
	}

	if m.goal == GoalRepackage && rc == nil && m.pkgPath != "" {
		logrus.Infof("wrote: %s", m.pkgPath)
	}

	if rc != nil {
		if m.failedFile != "" {
			logrus.Errorf("%s failed on file %s: %s", m.stepName, m.failedFile, rc.Error())
		} else {
			logrus.Errorf("%s failed: %s", m.stepName, rc.Error())
		}
		m.what = install.CallbackCpioError
		m.amount = 0
		m.total = 0
		m.notify()
	}

	m.oh = nil
	m.pkgPath = ""
	m.ioFlags = ""
	m.failedFile = ""

	fi := m.fi
	fi.UIDs = nil
	fi.GIDs = nil
	fi.States = nil
	fi.ArchivePaths = nil
}

//chrootIn enters the transaction's root directory. Entering twice is a
//no-op; a root of "/" (or none) needs no chroot at all. A transaction
//without UseChroot keeps materializing below the root directory prefix
//instead, which also works without privileges.
func (m *Machine) chrootIn() error {
	ts := m.ts
	rootDir := ts.RootDir
	if rootDir == "" || rootDir == "/" || ts.ChrootDone() || m.chrootDone {
		return nil
	}
	if !ts.UseChroot {
		logrus.Debugf("%s: installing below %s without chroot", m.stepName, rootDir)
		return nil
	}

	//resolve a user once now, so that the name service libraries are loaded
	//before they become unreachable behind the chroot
	_, _ = user.Lookup("root")

	err := os.Chdir("/")
	if err == nil {
		err = syscall.Chroot(rootDir)
	}
	if err != nil {
		return install.WrapError(install.CodeIO, err, "cannot enter root directory")
	}
	m.chrootDone = true
	ts.SetChrootDone(true)
	return nil
}

//chrootOut restores the original root and working directory. Only the
//invocation that entered the chroot leaves it.
func (m *Machine) chrootOut() error {
	if !m.chrootDone {
		return nil
	}
	err := syscall.Chroot(".")
	if err != nil {
		return install.WrapError(install.CodeIO, err, "cannot leave root directory")
	}
	m.chrootDone = false
	m.ts.SetChrootDone(false)
	if m.ts.CurrDir != "" {
		_ = os.Chdir(m.ts.CurrDir)
	}
	return nil
}

//script runs the scriptlet selected by the current script/prog tags.
func (m *Machine) script() error {
	runner := scriptlet.Runner{TS: m.ts}
	return runner.RunFromHeader(m.te.Header, m.scriptTag, m.progTag, m.scriptArg, scriptlet.NoArg)
}

//dbLoad replaces the element's header with the record stored at the recorded
//database offset.
func (m *Machine) dbLoad() error {
	record := m.fi.Record
	it := m.ts.DB.ByOffset(record)
	defer it.Close()

	hdr := it.Next()
	if hdr == nil {
		return install.Errorf(install.CodeDBFail, "header #%d not found", record)
	}

	fi, err := install.NewFileInfo(hdr)
	if err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot read file info from record")
	}
	fi.Record = record
	fi.Actions = m.fi.Actions
	fi.StripLen = 1
	fi.BuildArchivePaths(hdr)

	m.te.Header = hdr
	m.te.FileInfo = fi
	m.fi = fi
	return nil
}

//dbAdd appends the stored header to the database under the current
//transaction id.
func (m *Machine) dbAdd() error {
	if m.ts.Flags&install.FlagTest != 0 {
		return nil
	}
	hdr := m.te.Header
	if m.ts.Flags&install.FlagMultilib != 0 && m.oh != nil {
		hdr = m.oh
	}
	offset, err := m.ts.DB.Add(m.ts.ID, hdr)
	if err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot add database record")
	}
	m.fi.Record = offset
	return nil
}

//dbRemove deletes the database record at the recorded offset.
func (m *Machine) dbRemove() error {
	if m.ts.Flags&install.FlagTest != 0 {
		return nil
	}
	err := m.ts.DB.Remove(m.ts.ID, m.fi.Record)
	if err != nil {
		return install.WrapError(install.CodeDBFail, err, "cannot remove database record")
	}
	return nil
}

//commit runs the separate commit pass when the transaction asks for one.
func (m *Machine) commit() error {
	ts := m.ts
	if ts.Flags&install.FlagPkgCommit == 0 || ts.Flags&install.FlagApplyOnly != 0 {
		return nil
	}
	result, err := fsm.Run(fsm.ModeCommit, ts, m.fi, nil, nil)
	if err != nil {
		m.failedFile = result.FailedFile
		return install.WrapError(install.CodeUnpackFail, err, "commit pass failed")
	}
	return nil
}

//notify emits the currently prepared progress notification.
func (m *Machine) notify() {
	m.ts.NotifyElement(m.te, m.what, m.amount, m.total)
}

//tagMacros are the macros defined from per-header tag values while a package
//is operated on.
var tagMacros = []struct {
	name string
	tag  header.Tag
}{
	{"name", header.TagName},
	{"version", header.TagVersion},
	{"release", header.TagRelease},
	{"epoch", header.TagEpoch},
}

//loadHeaderMacros defines the per-header macros in the process-wide macro
//context.
func loadHeaderMacros(hdr *header.Header) {
	for _, tm := range tagMacros {
		if value, ok := hdr.GetString(tm.tag); ok {
			install.Macros.Define(tm.name, value)
			continue
		}
		if value, ok := hdr.GetInt32(tm.tag); ok {
			install.Macros.Define(tm.name, fmt.Sprintf("%d", value))
		}
	}
}

//archNum maps the arch tag onto the numeric code used in the lead.
func archNum(hdr *header.Header) uint16 {
	arch, _ := hdr.GetString(header.TagArch)
	switch arch {
	case "noarch":
		return 0
	case "i386", "i486", "i586", "i686", "x86_64", "amd64", "athlon":
		return 1
	case "sparc":
		return 3
	case "ppc":
		return 5
	case "arm", "aarch64":
		return 12
	default:
		return 0
	}
}

//osNum maps the os tag onto the numeric code used in the lead.
func osNum(hdr *header.Header) uint16 {
	osName, _ := hdr.GetString(header.TagOs)
	if osName == "" || osName == "linux" || osName == "Linux" {
		return 1
	}
	return 0
}
