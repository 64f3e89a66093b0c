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

package fsm

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	cpio "github.com/surma/gocpio"

	install "github.com/holocm/libpackageinstall"
	"github.com/holocm/libpackageinstall/header"
)

//File type bits as stored in cpio mode fields.
const (
	modeTypeMask uint16 = 0xf000
	modeDir      uint16 = 0x4000
	modeSymlink  uint16 = 0xa000
)

//runInstall reads the decompressed payload and materializes each member that
//the per-file action table does not exclude.
func runInstall(ts *install.Transaction, fi *install.FileInfo, stream io.Reader) (Result, error) {
	result := Result{}
	reader := cpio.NewReader(stream)

	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, errors.Wrap(err, "cannot read payload member")
		}
		if hdr.IsTrailer() {
			break
		}

		name := strings.TrimPrefix(strings.TrimPrefix(hdr.Name, "./"), "/")
		idx := fi.ArchiveIndex(name)
		if idx < 0 {
			result.FailedFile = name
			return result, errors.Errorf("payload member %s not in file list", name)
		}
		result.ArchiveSize += uint64(hdr.Size)

		if skippable(fi, idx) {
			//drain the member data so the stream stays aligned
			_, err := io.Copy(io.Discard, reader)
			if err != nil {
				result.FailedFile = name
				return result, errors.Wrap(err, "cannot skip payload member")
			}
			continue
		}

		err = materialize(ts, fi, idx, hdr, reader)
		if err != nil {
			result.FailedFile = fi.Path(idx)
			return result, err
		}
		if fi.States != nil {
			fi.States[idx] = header.FileStateNormal
		}
	}

	return result, nil
}

//materialize writes one payload member to disk, applying the attribute
//overrides selected by the map flags.
func materialize(ts *install.Transaction, fi *install.FileInfo, idx int, hdr *cpio.Header, reader io.Reader) error {
	target := diskPath(ts, fi.Path(idx))

	mode := uint16(hdr.Mode)
	if fi.MapFlags&install.MapMode != 0 && idx < len(fi.Modes) {
		mode = fi.Modes[idx]
	}

	switch {
	case hdr.Type == cpio.TYPE_DIR || mode&modeTypeMask == modeDir:
		err := os.MkdirAll(target, os.FileMode(mode&^modeTypeMask))
		if err != nil {
			return errors.Wrap(err, "cannot create directory")
		}
	case hdr.Type == cpio.TYPE_SYMLINK || mode&modeTypeMask == modeSymlink:
		buf, err := io.ReadAll(reader)
		if err != nil {
			return errors.Wrap(err, "cannot read symlink target")
		}
		err = os.MkdirAll(filepath.Dir(target), 0755)
		if err != nil {
			return errors.Wrap(err, "cannot create parent directory")
		}
		os.Remove(target)
		err = os.Symlink(string(buf), target)
		if err != nil {
			return errors.Wrap(err, "cannot create symlink")
		}
		return nil
	default:
		err := os.MkdirAll(filepath.Dir(target), 0755)
		if err != nil {
			return errors.Wrap(err, "cannot create parent directory")
		}
		file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(mode&^modeTypeMask))
		if err != nil {
			return errors.Wrap(err, "cannot create file")
		}
		_, err = io.Copy(file, reader)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return errors.Wrap(err, "cannot write file")
		}
		err = os.Chmod(target, os.FileMode(mode&^modeTypeMask))
		if err != nil {
			return errors.Wrap(err, "cannot set file mode")
		}
	}

	//ownership can only be applied with sufficient privileges
	if os.Geteuid() == 0 && fi.MapFlags&(install.MapUID|install.MapGID) != 0 {
		uid := int(hdr.Uid)
		gid := int(hdr.Gid)
		if fi.MapFlags&install.MapUID != 0 && idx < len(fi.UIDs) {
			uid = fi.UIDs[idx]
		}
		if fi.MapFlags&install.MapGID != 0 && idx < len(fi.GIDs) {
			gid = fi.GIDs[idx]
		}
		err := os.Lchown(target, uid, gid)
		if err != nil {
			return errors.Wrap(err, "cannot set file owner")
		}
	}

	if idx < len(fi.Mtimes) && fi.Mtimes[idx] != 0 {
		mtime := time.Unix(int64(fi.Mtimes[idx]), 0)
		//best effort; a read-only mtime is not worth failing the install
		_ = os.Chtimes(target, mtime, mtime)
	}

	return nil
}

//runBuild streams the files of an installed package out as a CPIO archive,
//reading the current contents from disk.
func runBuild(ts *install.Transaction, fi *install.FileInfo, stream io.Writer) (Result, error) {
	result := Result{}
	writer := cpio.NewWriter(stream)

	for idx := 0; idx < fi.FC(); idx++ {
		if skippable(fi, idx) {
			continue
		}
		err := copyOut(ts, fi, idx, writer)
		if err != nil {
			result.FailedFile = fi.Path(idx)
			return result, err
		}
		if idx < len(fi.Sizes) {
			result.ArchiveSize += uint64(fi.Sizes[idx])
		}
	}

	err := writer.Close()
	if err != nil {
		return result, errors.Wrap(err, "cannot finish payload")
	}
	return result, nil
}

//copyOut writes one on-disk file into the output archive.
func copyOut(ts *install.Transaction, fi *install.FileInfo, idx int, writer *cpio.Writer) error {
	source := diskPath(ts, fi.Path(idx))
	name := "./" + fi.ArchivePaths[idx]

	mode := uint16(0644)
	if idx < len(fi.Modes) {
		mode = fi.Modes[idx]
	}
	var mtime int64
	if idx < len(fi.Mtimes) {
		mtime = int64(fi.Mtimes[idx])
	}
	hdr := cpio.Header{
		Name:  name,
		Mode:  int64(mode &^ modeTypeMask),
		Mtime: mtime,
	}
	if idx < len(fi.UIDs) {
		hdr.Uid = fi.UIDs[idx]
		hdr.Gid = fi.GIDs[idx]
	}

	switch mode & modeTypeMask {
	case modeDir:
		hdr.Type = cpio.TYPE_DIR
		return errors.Wrap(writer.WriteHeader(&hdr), "cannot write directory member")
	case modeSymlink:
		target, err := os.Readlink(source)
		if err != nil {
			return errors.Wrap(err, "cannot read symlink")
		}
		hdr.Type = cpio.TYPE_SYMLINK
		hdr.Size = int64(len(target))
		err = writer.WriteHeader(&hdr)
		if err != nil {
			return errors.Wrap(err, "cannot write symlink member")
		}
		_, err = writer.Write([]byte(target))
		return errors.Wrap(err, "cannot write symlink target")
	default:
		file, err := os.Open(source)
		if err != nil {
			return errors.Wrap(err, "cannot open file for archiving")
		}
		defer file.Close()
		stat, err := file.Stat()
		if err != nil {
			return errors.Wrap(err, "cannot stat file for archiving")
		}
		hdr.Type = cpio.TYPE_REG
		hdr.Size = stat.Size()
		err = writer.WriteHeader(&hdr)
		if err != nil {
			return errors.Wrap(err, "cannot write file member")
		}
		_, err = io.Copy(writer, file)
		return errors.Wrap(err, "cannot write file contents")
	}
}
