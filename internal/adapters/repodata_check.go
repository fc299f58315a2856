package adapters

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// repomd mirrors the subset of repomd.xml the engine needs for
// structural revalidation: which metadata files a repository declares.
type repomd struct {
	XMLName xml.Name     `xml:"repomd"`
	Data    []repomdData `xml:"data"`
}

type repomdData struct {
	Type     string `xml:"type,attr"`
	Location struct {
		Href string `xml:"href,attr"`
	} `xml:"location"`
	Size int64 `xml:"size"`
}

// ValidateRepoTree revalidates every repository under root: each
// repodata/repomd.xml must parse and every file it references must be
// present with the declared size. This is the second integrity gate,
// applied at promotion time independently of import verification.
func ValidateRepoTree(root string) error {
	found := 0
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || entry.Name() != "repomd.xml" || filepath.Base(filepath.Dir(path)) != "repodata" {
			return nil
		}
		found++
		return validateRepomd(path)
	})
	if err != nil {
		return err
	}
	if found == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no repository metadata found under " + root)
	}
	return nil
}

func validateRepomd(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read repomd.xml").
			WithCause(err)
	}
	var doc repomd
	if err := xml.Unmarshal(data, &doc); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("malformed repomd.xml: " + path).
			WithCause(err)
	}
	repoDir := filepath.Dir(filepath.Dir(path))
	for _, entry := range doc.Data {
		if entry.Location.Href == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("repomd.xml entry %q has no location: %s", entry.Type, path))
		}
		referenced := filepath.Join(repoDir, filepath.FromSlash(entry.Location.Href))
		info, err := os.Stat(referenced)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("repository metadata references missing file: " + entry.Location.Href).
				WithCause(err)
		}
		if entry.Size > 0 && info.Size() != entry.Size {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("repository metadata size mismatch for %s: declared %d, found %d",
					entry.Location.Href, entry.Size, info.Size()))
		}
	}
	return nil
}
