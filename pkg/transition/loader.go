// Copyright 2026 The Hegel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transition

import (
	"path/filepath"

	"github.com/hegel-dev/hegel/workflow"
)

// DirLoader resolves a workflow mode to "<Dir>/<mode>.yaml" and parses it
// fresh on every Load, matching the stateless-engine contract: nothing in
// the transition controller caches a parsed Workflow across calls, so a
// workflow file edited mid-session takes effect on the very next advance.
type DirLoader struct {
	Dir string
}

func (l DirLoader) Load(mode string) (*workflow.Workflow, error) {
	return workflow.Load(filepath.Join(l.Dir, mode+".yaml"))
}
