// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !integration

package kernel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hoststat/pkg/kernel"
)

const (
	ubuntuVersionLine = "Linux version 5.15.0-91-generic (buildd@lcy02-amd64-045) (gcc (Ubuntu 11.4.0-1ubuntu1~22.04) 11.4.0, GNU ld (GNU Binutils for Ubuntu) 2.38) #101-Ubuntu SMP Tue Nov 14 13:30:08 UTC 2023\n"
	rhelVersionLine   = "Linux version 4.18.0-348.el8.x86_64 (mockbuild@x86-vm-07.build.eng.bos.redhat.com) #1 SMP Mon Oct 4 12:17:22 EDT 2021"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *kernel.Version
		wantErr bool
	}{
		{
			name:  "standard version",
			input: "6.1.0",
			want:  &kernel.Version{Major: 6, Minor: 1, Patch: 0, Raw: "6.1.0"},
		},
		{
			name:  "distribution suffix",
			input: "6.2.0-26-generic",
			want:  &kernel.Version{Major: 6, Minor: 2, Patch: 0, Raw: "6.2.0-26-generic"},
		},
		{
			name:  "no patch component",
			input: "5.15",
			want:  &kernel.Version{Major: 5, Minor: 15, Patch: 0, Raw: "5.15"},
		},
		{
			name:  "release candidate patch falls back to zero",
			input: "5.10.0rc1",
			want:  &kernel.Version{Major: 5, Minor: 10, Patch: 0, Raw: "5.10.0rc1"},
		},
		{
			name:  "non-zero patch",
			input: "5.4.262",
			want:  &kernel.Version{Major: 5, Minor: 4, Patch: 262, Raw: "5.4.262"},
		},
		{
			name:    "single number",
			input:   "5",
			wantErr: true,
		},
		{
			name:    "leading v",
			input:   "v5.15.0",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := kernel.ParseVersion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersionLine(t *testing.T) {
	v, err := kernel.ParseVersionLine(ubuntuVersionLine)
	require.NoError(t, err)
	assert.Equal(t, "5.15.0-91-generic", v.Raw)
	assert.Equal(t, "5.15.0", v.String())

	v, err = kernel.ParseVersionLine(rhelVersionLine)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Major)
	assert.Equal(t, 18, v.Minor)

	_, err = kernel.ParseVersionLine("Darwin Kernel Version 23.1.0")
	assert.Error(t, err)

	_, err = kernel.ParseVersionLine("Linux version ")
	assert.Error(t, err)
}

func TestGetCurrentVersion(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "version"), []byte(ubuntuVersionLine), 0644))

	v, err := kernel.GetCurrentVersion(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Compare(&kernel.Version{Major: 5, Minor: 15}))
	assert.Equal(t, -1, v.Compare(&kernel.Version{Major: 6}))

	_, err = kernel.GetCurrentVersion(filepath.Join(tmpDir, "missing"))
	assert.Error(t, err)
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		name string
		v1   *kernel.Version
		v2   *kernel.Version
		want int
	}{
		{"equal", &kernel.Version{Major: 5, Minor: 8}, &kernel.Version{Major: 5, Minor: 8}, 0},
		{"newer major", &kernel.Version{Major: 6}, &kernel.Version{Major: 5, Minor: 8}, 1},
		{"older minor", &kernel.Version{Major: 5, Minor: 4}, &kernel.Version{Major: 5, Minor: 8}, -1},
		{"newer patch", &kernel.Version{Major: 5, Minor: 8, Patch: 10}, &kernel.Version{Major: 5, Minor: 8, Patch: 5}, 1},
		{"older patch", &kernel.Version{Major: 5, Minor: 8, Patch: 3}, &kernel.Version{Major: 5, Minor: 8, Patch: 5}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v1.Compare(tt.v2))
		})
	}
}
