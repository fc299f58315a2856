package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"gapsync/internal/types"
)

// ManifestValidator performs structural validation of host manifests
// before they are admitted to the index. A manifest that fails here is
// rejected outright; nothing is written.
type ManifestValidator struct{}

func NewManifestValidator() ManifestValidator {
	return ManifestValidator{}
}

func (v ManifestValidator) ValidateManifest(ctx context.Context, manifest types.HostManifest) error {
	assert.NotEmpty(ctx, manifest.HostID, "host_id must be set")
	assert.NotEmpty(ctx, manifest.CapturedAt, "timestamp must be set")

	if strings.TrimSpace(manifest.HostID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest host_id must not be empty")
	}
	if strings.ContainsAny(manifest.HostID, "/\\") {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest host_id contains path separator")
	}
	if strings.TrimSpace(manifest.CapturedAt) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest timestamp must not be empty")
	}
	if _, err := time.Parse(time.RFC3339, manifest.CapturedAt); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest timestamp is not RFC 3339").
			WithCause(err)
	}
	if strings.TrimSpace(manifest.OSRelease.ID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest os_release.id must not be empty")
	}
	if strings.TrimSpace(manifest.OSRelease.Version) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest os_release.version must not be empty")
	}
	if manifest.Packages == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("manifest packages list is missing")
	}
	for i, pkg := range manifest.Packages {
		if strings.TrimSpace(pkg.Name) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("package %d has empty name", i))
		}
		if strings.TrimSpace(pkg.Arch) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("package %s has empty arch", pkg.Name))
		}
	}

	log.Ctx(ctx).Debug().Str("host", manifest.HostID).Msg("manifest validated")
	return nil
}
