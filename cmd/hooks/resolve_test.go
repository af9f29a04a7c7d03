// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no redirects", args: []string{"resolve", "save"}, want: "save"},
		{name: "chain", args: []string{"resolve", "-r", "a=b", "-r", "b=c", "a"}, want: "a -> b -> c"},
		{name: "middle of chain", args: []string{"resolve", "-r", "a=b", "-r", "b=c", "b"}, want: "b -> c"},
		{name: "overwrite", args: []string{"resolve", "-r", "a=b", "-r", "a=c", "a"}, want: "a -> c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestResolveCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "cycle", args: []string{"resolve", "-r", "a=b", "-r", "b=a", "a"}, wantErr: "circular"},
		{name: "self", args: []string{"resolve", "-r", "a=a", "a"}, wantErr: "circular"},
		{name: "malformed", args: []string{"resolve", "-r", "a", "a"}, wantErr: "from=to"},
		{name: "empty target", args: []string{"resolve", "-r", "a=", "a"}, wantErr: "from=to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
