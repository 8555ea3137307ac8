/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a logged error, a report file
// and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "karaokay/internal/log"
	"karaokay/internal/telemetry"
	"karaokay/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// reportDir is where reports go; empty means os.TempDir.
var reportDir = ""

// Info describes what the process was doing when it panicked.
type Info struct {
	Command string
	Script  string
	Args    []string
}

// Recover captures a panic, logs it with the stack, writes a crash report
// and exits with status 2.
//
// Usage: defer crash.Recover(info)
func Recover(info Info) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("command", info.Command), slog.String("stack", string(stack)))

	path, err := writeReport(info, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\nVersion: %s\nOS/Arch: %s/%s\n",
		path, version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func writeReport(info Info, panicVal any, stack []byte) (string, error) {
	dir := reportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("karaokay-crash-%s.log", time.Now().Format("20060102-150405.000")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "KaraOkay Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if info.Command != "" {
		_, _ = fmt.Fprintf(&buf, "Command: %s\n", info.Command)
	}
	if len(info.Args) > 0 {
		_, _ = fmt.Fprintf(&buf, "Args: %s\n", strings.Join(info.Args, " "))
	}
	if info.Script != "" {
		_, _ = fmt.Fprintf(&buf, "Script: %s\n", info.Script)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// The uploaded copy omits local paths.
	telemetry.UploadCrash(redact(buf.Bytes(), info))
	return path, nil
}

func redact(report []byte, info Info) []byte {
	if info.Script == "" {
		return report
	}
	return bytes.ReplaceAll(report, []byte(info.Script), []byte("<script>"))
}
