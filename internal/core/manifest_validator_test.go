package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gapsync/internal/types"
)

func TestManifestValidatorCases(t *testing.T) {
	validator := NewManifestValidator()

	tests := []struct {
		name    string
		build   func() types.HostManifest
		wantErr bool
	}{
		{
			name:    "valid manifest",
			build:   sampleManifest,
			wantErr: false,
		},
		{
			name: "valid manifest with zero packages",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.Packages = []types.PackageRecord{}
				return manifest
			},
			wantErr: false,
		},
		{
			name: "host id with path separator",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.HostID = "web/01"
				return manifest
			},
			wantErr: true,
		},
		{
			name: "timestamp not RFC 3339",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.CapturedAt = "yesterday"
				return manifest
			},
			wantErr: true,
		},
		{
			name: "missing os id",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.OSRelease.ID = ""
				return manifest
			},
			wantErr: true,
		},
		{
			name: "missing os version",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.OSRelease.Version = ""
				return manifest
			},
			wantErr: true,
		},
		{
			name: "nil packages list",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.Packages = nil
				return manifest
			},
			wantErr: true,
		},
		{
			name: "package with empty name",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.Packages[0].Name = ""
				return manifest
			},
			wantErr: true,
		},
		{
			name: "package with empty arch",
			build: func() types.HostManifest {
				manifest := sampleManifest()
				manifest.Packages[0].Arch = ""
				return manifest
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateManifest(t.Context(), tt.build())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
