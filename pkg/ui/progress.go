package ui

import (
	"github.com/schollz/progressbar/v3"
)

// NewDownloadBar creates a progress bar for the download phase. Pass a
// negative total when the download count is unbounded; the bar then acts
// as a spinner with a running count.
func NewDownloadBar(total int) *progressbar.ProgressBar {
	if quietMode {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}
