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
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

//MacroContext holds the name-value pairs consulted when paths and scriptlet
//environments are assembled (%_sourcedir, %_specdir, %_install_script_path,
//%_repackage_dir, and the per-package %name/%version/%release/%epoch values
//defined while a package is being operated on).
//
//There is exactly one context per process (see Macros); concurrent state
//machine invocations within one process are not supported.
type MacroContext struct {
	values map[string]string
}

//Macros is the process-wide macro context.
var Macros = &MacroContext{values: make(map[string]string)}

//Define sets a macro value.
func (c *MacroContext) Define(name, value string) {
	c.values[name] = value
}

//Undefine removes a macro.
func (c *MacroContext) Undefine(name string) {
	delete(c.values, name)
}

//Lookup reads a macro value.
func (c *MacroContext) Lookup(name string) (string, bool) {
	value, ok := c.values[name]
	return value, ok
}

var macroRx = regexp.MustCompile(`%\{([A-Za-z_][A-Za-z0-9_]*)\}`)

//Expand substitutes %{name} references in the given string. References to
//undefined macros are left verbatim, so callers can detect an unexpanded
//result by the leading percent sign.
func (c *MacroContext) Expand(str string) string {
	return macroRx.ReplaceAllStringFunc(str, func(match string) string {
		name := match[2 : len(match)-1]
		if value, ok := c.values[name]; ok {
			return c.Expand(value)
		}
		return match
	})
}

//Path expands a %{macro} reference and joins it below the given root
//directory ("" and "/" mean no prefixing).
func (c *MacroContext) Path(rootDir, str string) string {
	expanded := c.Expand(str)
	if rootDir == "" || rootDir == "/" {
		return expanded
	}
	return filepath.Join(rootDir, expanded)
}

//macroFile is the TOML shape of a macro configuration file.
type macroFile struct {
	Macros map[string]string `toml:"macros"`
}

//LoadMacroFile merges the [macros] table of a TOML configuration file into
//this context.
func (c *MacroContext) LoadMacroFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "cannot read macro file")
	}
	var parsed macroFile
	_, err = toml.Decode(string(buf), &parsed)
	if err != nil {
		return errors.Wrapf(err, "cannot parse macro file %s", path)
	}
	for name, value := range parsed.Macros {
		c.values[strings.TrimPrefix(name, "%")] = value
	}
	return nil
}
