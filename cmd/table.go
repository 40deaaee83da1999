package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"vidgrab/types"
)

// renderFormats prints a media summary followed by its selectable formats
func renderFormats(w io.Writer, info *types.MediaInfo) {
	fmt.Fprintf(w, "%s\n", info.Title)
	if info.Uploader != "" || info.DurationString != "" {
		fmt.Fprintf(w, "%s  %s\n", info.Uploader, info.DurationString)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Format", "Quality", "Ext", "Resolution", "Size"})
	for _, f := range info.Formats {
		size := "-"
		if f.Filesize != nil && *f.Filesize > 0 {
			size = humanize.Bytes(uint64(*f.Filesize))
		}
		tw.AppendRow(table.Row{f.FormatID, f.QualityLabel, f.Ext, f.Resolution, size})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()
}

// isTerminal reports whether fd is attached to an interactive terminal
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
