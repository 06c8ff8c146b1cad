package server

import (
	"fmt"
	"html/template"
	"time"
)

// templateFuncs are available to every view.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"avgPosition": formatAvgPosition,
		"date":        formatDate,
		"deref":       derefInt,
	}
}

func formatAvgPosition(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *p)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2 Jan 2006")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
