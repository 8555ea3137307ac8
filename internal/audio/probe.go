/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package audio probes backing tracks so the declared script duration can be
// checked against the real audio length.
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Info describes a PCM WAV file.
type Info struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
}

// ProbeWAV reads the header of the WAV file at path and counts its frames.
func ProbeWAV(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	info, err := Probe(f)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// Probe is ProbeWAV on an open reader.
func Probe(r io.ReadSeeker) (Info, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Info{}, errors.New("invalid wav file")
	}
	dec.ReadInfo()
	if dec.SampleRate == 0 || dec.NumChans == 0 || dec.BitDepth == 0 {
		return Info{}, errors.New("invalid wav header")
	}
	samples, err := countSamples(dec)
	if err != nil {
		return Info{}, fmt.Errorf("decode wav: %w", err)
	}
	frames := samples / int(dec.NumChans)
	return Info{
		Duration:   float64(frames) / float64(dec.SampleRate),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// countSamples streams the PCM data and counts interleaved samples.
func countSamples(dec *wav.Decoder) (int, error) {
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		Data:           make([]int, 64*1024),
		SourceBitDepth: int(dec.BitDepth),
	}
	total := 0
	for {
		n, err := dec.PCMBuffer(buf)
		total += n
		if err == io.EOF || (err == nil && n == 0) {
			return total, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// DurationMismatch reports whether the script duration and the audio length
// differ by more than tolerance seconds.
func DurationMismatch(scriptDuration float64, info Info, tolerance float64) (delta float64, mismatch bool) {
	delta = scriptDuration - info.Duration
	return delta, math.Abs(delta) > tolerance
}
