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

package archive

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hegel-dev/hegel/pkg/storage"
)

// gitLogFormat produces one line per commit: hash, author-date (strict
// ISO 8601), author name, then the subject, separated by
// unit separators so a commit message containing a comma or pipe can't
// desynchronize the fields.
const gitLogFormat = "%H\x1f%aI\x1f%an\x1f%s"

// ShellGitLog is the production GitLog: it shells out to the git binary on
// PATH, the same way the guardrail wraps any other command.
type ShellGitLog struct {
	// Dir is the repository working directory. Empty uses the process's
	// current directory.
	Dir string
}

// CommitsSince runs `git log --since=<since> --numstat` and parses its
// output. A repository that does not exist (or has no commits) is not an
// error: an empty result is valid per the GitLog contract.
func (g ShellGitLog) CommitsSince(since time.Time) ([]storage.GitCommit, error) {
	cmd := exec.Command("git", "log",
		"--since="+since.UTC().Format(time.RFC3339),
		"--date=iso-strict",
		"--numstat",
		"--pretty=format:"+gitLogFormat)
	cmd.Dir = g.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		// Not a git repository, no commits, or git missing: treat as "no
		// commit activity" rather than failing the archive/repair pass.
		return nil, nil
	}

	return parseGitLog(out.String()), nil
}

func parseGitLog(output string) []storage.GitCommit {
	var commits []storage.GitCommit
	var cur *storage.GitCommit

	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		if fields := strings.Split(line, "\x1f"); len(fields) == 4 {
			if cur != nil {
				commits = append(commits, *cur)
			}
			cur = &storage.GitCommit{
				Hash:      fields[0],
				Timestamp: fields[1],
				Author:    fields[2],
				Message:   fields[3],
			}
			continue
		}
		if cur == nil {
			continue
		}
		// numstat line: "<insertions>\t<deletions>\t<path>"
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		ins, errIns := strconv.Atoi(parts[0])
		del, errDel := strconv.Atoi(parts[1])
		if errIns != nil || errDel != nil {
			continue
		}
		cur.Insertions += ins
		cur.Deletions += del
		cur.FilesChanged++
	}
	if cur != nil {
		commits = append(commits, *cur)
	}

	// git log prints newest-first; GitLog's contract is ascending.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits
}
