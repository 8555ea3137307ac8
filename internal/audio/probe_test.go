/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package audio

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, rate, chans, samples int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "track.wav")
	f, err := os.Create(p)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, chans, 1)
	data := make([]int, samples)
	for i := range data {
		data[i] = (i % 200) - 100
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return p
}

func TestProbeWAVMono(t *testing.T) {
	info, err := ProbeWAV(writeWAV(t, 8000, 1, 12000))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, info.Duration, 1e-9)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
}

func TestProbeWAVStereo(t *testing.T) {
	info, err := ProbeWAV(writeWAV(t, 8000, 2, 16000))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, info.Duration, 1e-9)
	assert.Equal(t, 2, info.Channels)
}

func TestProbeRejectsNonWAV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.wav")
	require.NoError(t, os.WriteFile(p, []byte("# Duration: 3\n"), 0o600))
	_, err := ProbeWAV(p)
	assert.Error(t, err)

	_, err = ProbeWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationMismatch(t *testing.T) {
	d, bad := DurationMismatch(65, Info{Duration: 64.8}, 0.5)
	assert.False(t, bad)
	assert.InDelta(t, 0.2, d, 1e-9)
	_, bad = DurationMismatch(60, Info{Duration: 64.8}, 0.5)
	assert.True(t, bad)
}
