// Package layout maps accepted images to destination paths under the
// output root: flat or grouped into numbered subfolders, keeping the
// original filename or renaming to the sequence index.
package layout

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"megascraper/pkg/config"
	errs "megascraper/pkg/errors"
)

// folderNumberWidth pads grouped folder names: 0001, 0002, ...
const folderNumberWidth = 4

// ExistsFunc reports whether a destination path is already taken on disk.
// May be nil, in which case only paths planned this run are avoided.
type ExistsFunc func(string) bool

// Planner computes destination paths for accepted images. It remembers
// every path it hands out, so two images in one run can never collide.
type Planner struct {
	root       string
	structure  string
	naming     string
	perFolder  int
	initialNum int
	exists     ExistsFunc
	planned    map[string]struct{}
}

// New creates a planner from the output configuration
func New(cfg *config.OutputConfig, exists ExistsFunc) *Planner {
	return &Planner{
		root:       cfg.Folder,
		structure:  cfg.Structure,
		naming:     cfg.Naming,
		perFolder:  cfg.ImagesPerFolder,
		initialNum: cfg.FolderInitialNum,
		exists:     exists,
		planned:    make(map[string]struct{}),
	}
}

// Plan computes the destination path for the seq-th accepted image
// (1-based) with the given source URL. Collisions with earlier plans or
// files already on disk are disambiguated with an incrementing suffix.
func (p *Planner) Plan(seq int, rawURL string) (string, error) {
	if seq < 1 {
		return "", errs.New(errs.KindWrite, rawURL, fmt.Sprintf("invalid sequence index %d", seq))
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.KindWrite, rawURL, err)
	}

	dir := p.root
	if p.structure == config.StructureGrouped {
		folderNum := p.initialNum + (seq-1)/p.perFolder
		dir = filepath.Join(p.root, fmt.Sprintf("%0*d", folderNumberWidth, folderNum))
	}

	name := p.filename(seq, u)
	dest := p.disambiguate(filepath.Join(dir, name))
	p.planned[dest] = struct{}{}
	return dest, nil
}

// filename picks the file name for the image according to the naming mode
func (p *Planner) filename(seq int, u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		ext = ".jpg"
	}

	if p.naming == config.NamingNumerical {
		return fmt.Sprintf("%d%s", seq, ext)
	}

	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		base = fmt.Sprintf("image%d%s", seq, ext)
	}
	return base
}

// disambiguate appends _1, _2, ... until the path is free both among
// already planned paths and on disk
func (p *Planner) disambiguate(dest string) string {
	if p.free(dest) {
		return dest
	}

	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if p.free(candidate) {
			return candidate
		}
	}
}

func (p *Planner) free(dest string) bool {
	if _, taken := p.planned[dest]; taken {
		return false
	}
	if p.exists != nil && p.exists(dest) {
		return false
	}
	return true
}
