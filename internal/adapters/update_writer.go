package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"gapsync/internal/ports"
	"gapsync/internal/types"
)

// UpdateWriterAdapter writes resolution artifacts into a directory the
// builder later stages as the bundle's updates/ tree.
type UpdateWriterAdapter struct {
	Dir string
}

func NewUpdateWriterAdapter(dir string) UpdateWriterAdapter {
	return UpdateWriterAdapter{Dir: dir}
}

func (a UpdateWriterAdapter) WriteUpdateReport(report types.HostUpdateReport) error {
	if err := a.ensureDir(); err != nil {
		return err
	}
	if strings.TrimSpace(report.HostID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("update report host_id is empty")
	}
	return writeJSONAtomic(filepath.Join(a.Dir, report.HostID+".updates.json"), report)
}

func (a UpdateWriterAdapter) WriteFleetSummary(summary types.FleetSummary) error {
	if err := a.ensureDir(); err != nil {
		return err
	}
	return writeJSONAtomic(filepath.Join(a.Dir, "summary.json"), summary)
}

func (a UpdateWriterAdapter) ensureDir() error {
	if strings.TrimSpace(a.Dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("update output directory is empty")
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create update output directory").
			WithCause(err)
	}
	return nil
}

var _ ports.OutputPort = UpdateWriterAdapter{}
