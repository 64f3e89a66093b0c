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

//Package install is the runtime side of package management: it installs,
//erases and repackages packages that were built by a package generator. This
//package contains the shared data model (transactions, transaction elements,
//per-package file info, error codes and the process-wide macro context). The
//state machine that drives one package through an operation is in the psm
//subpackage; the other subpackages cover the header structures, dependency
//sets, the package database, payload streaming and scriptlet execution.
package install
