/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists is returned when an output file exists and overwriting was not
// requested.
var ErrExists = errors.New("output already exists")

// CreateOutput creates path and its directory. An existing file is only
// truncated when force is set.
func CreateOutput(path string, force bool) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%s: %w (use --force to overwrite)", path, ErrExists)
	}
	return f, err
}

// frameSink receives encoded frames.
type frameSink interface {
	Put(name string, data []byte) error
	Close() error
}

type dirSink struct {
	dir   string
	force bool
}

func (d dirSink) Put(name string, data []byte) error {
	f, err := CreateOutput(filepath.Join(d.dir, name), d.force)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (dirSink) Close() error { return nil }

// zipSink stores frames in a single archive.
type zipSink struct {
	f  *os.File
	zw *zip.Writer
}

func newZipSink(path string, force bool) (*zipSink, error) {
	f, err := CreateOutput(path, force)
	if err != nil {
		return nil, err
	}
	return &zipSink{f: f, zw: zip.NewWriter(f)}, nil
}

func (z *zipSink) Put(name string, data []byte) error {
	w, err := z.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (z *zipSink) Close() error {
	if err := z.zw.Close(); err != nil {
		_ = z.f.Close()
		return fmt.Errorf("close archive: %w", err)
	}
	return z.f.Close()
}
