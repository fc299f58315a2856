package adapters

import (
	"bufio"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// ParsePackageList reads the pipe-separated package inventory produced
// on hosts with
//
//	rpm -qa --qf '%{NAME}|%{EPOCH}|%{VERSION}|%{RELEASE}|%{ARCH}|%{INSTALLTIME}\n'
//
// Lines with fewer than five fields are skipped; hosts occasionally
// append shell noise to the capture and one bad line should not void an
// otherwise good inventory.
func ParsePackageList(r io.Reader) ([]types.PackageRecord, error) {
	var records []types.PackageRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 5 {
			continue
		}
		record := types.PackageRecord{
			Name:    strings.TrimSpace(parts[0]),
			Epoch:   shared.NormalizeEpoch(parts[1]),
			Version: strings.TrimSpace(parts[2]),
			Release: strings.TrimSpace(parts[3]),
			Arch:    strings.TrimSpace(parts[4]),
		}
		if len(parts) > 5 {
			record.InstallTime = strings.TrimSpace(parts[5])
		}
		if record.Name == "" || record.Arch == "" {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read package list").
			WithCause(err)
	}
	if len(records) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package list contains no parseable entries")
	}
	return records, nil
}
