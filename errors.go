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

package install

import (
	"fmt"

	"github.com/pkg/errors"
)

//Code classifies the failures that the state machine reports to the
//transaction.
type Code int

//Failure classes.
const (
	CodeUnknown Code = iota
	//CodeNoMem reports an allocation failure in a collaborator.
	CodeNoMem
	//CodeIO reports a read or write failure on a package file or stream.
	CodeIO
	//CodeNoSpec reports a source package that contains no spec file.
	CodeNoSpec
	//CodeNotSRPM reports a binary package where a source package was needed.
	CodeNotSRPM
	//CodeScriptFail reports a scriptlet that exited with nonzero status.
	CodeScriptFail
	//CodeUnpackFail reports a payload that could not be materialized.
	CodeUnpackFail
	//CodeDBFail reports a package database failure.
	CodeDBFail
	//CodeBadSize reports a package whose payload size disagrees with its
	//header. Callers treat this as a warning, not a failure.
	CodeBadSize
)

func (c Code) String() string {
	switch c {
	case CodeNoMem:
		return "out of memory"
	case CodeIO:
		return "I/O error"
	case CodeNoSpec:
		return "missing spec file"
	case CodeNotSRPM:
		return "not a source package"
	case CodeScriptFail:
		return "scriptlet failure"
	case CodeUnpackFail:
		return "unpack failure"
	case CodeDBFail:
		return "database failure"
	case CodeBadSize:
		return "payload size mismatch"
	default:
		return "unknown error"
	}
}

//Error is a failure annotated with its Code.
type Error struct {
	Code Code
	Err  error
}

//Error implements the builtin error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.String(), e.Err.Error())
}

//Unwrap supports errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

//Errorf builds an *Error from a format string.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

//WrapError annotates err with a Code and a message. Returns nil if err is
//nil.
func WrapError(code Code, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: errors.Wrap(err, message)}
}

//CodeOf extracts the Code from an error chain (CodeUnknown if none is
//attached).
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
