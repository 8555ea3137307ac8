/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command karaokay turns timed lyric scripts into karaoke layouts and renders
// them as frames, frame sequences, PDF timing sheets or JSON for external
// renderers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"karaokay/internal/crash"
	"karaokay/internal/script"
)

func main() {
	defer crash.Recover(crash.Info{Command: "karaokay", Args: os.Args[1:]})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps script errors to 2 and everything else to 1.
func exitCode(err error) int {
	var pe *script.ParseError
	if errors.As(err, &pe) {
		return 2
	}
	return 1
}
