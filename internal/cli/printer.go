// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

// printer writes operator feedback. Colors are dropped when the output is
// not a terminal or NO_COLOR is set.
type printer struct {
	out    io.Writer
	errOut io.Writer
}

func (p printer) success(format string, a ...any) {
	_, _ = green.Fprintf(p.out, "✓ "+format+"\n", a...)
}

func (p printer) warning(format string, a ...any) {
	_, _ = yellow.Fprintf(p.out, "! "+format+"\n", a...)
}

func (p printer) failure(err error) {
	_, _ = red.Fprintf(p.errOut, "Error: %v\n", err)
}

func (p printer) info(format string, a ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", a...)
}

func (p printer) table(header []string, rows [][]string) error {
	t := tablewriter.NewWriter(p.out)
	t.Header(header)
	if err := t.Bulk(rows); err != nil {
		return err
	}
	return t.Render()
}
