package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tunecache/internal/api"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxTitleWidth = 40

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderRecordTable(records []api.Record) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := rec.ArtifactURL
		if rec.State == "failed" {
			detail = rec.ErrorDetail
		}
		rows = append(rows, []string{
			rec.ContentID,
			text.Trim(rec.Title, maxTitleWidth),
			rec.State,
			strconv.Itoa(rec.Attempts),
			rec.UpdatedAt,
			detail,
		})
	}
	return renderTable(
		[]string{"Content ID", "Title", "State", "Attempts", "Updated", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func renderStatsTable(stats map[string]int, order []string) string {
	rows := make([][]string, 0, len(order)+1)
	total := 0
	for _, state := range order {
		rows = append(rows, []string{state, strconv.Itoa(stats[state])})
		total += stats[state]
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	return renderTable([]string{"State", "Records"}, rows, []columnAlignment{alignLeft, alignRight})
}
