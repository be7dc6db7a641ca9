// Package view renders terminal output from embedded text templates.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wastewatch/wastewatch/internal/dashboard"
	"github.com/wastewatch/wastewatch/internal/shared"
	"github.com/wastewatch/wastewatch/web"
)

// Engine renders named templates with aligned columns.
type Engine struct {
	templates *template.Template
}

// DashboardData is the input of the dashboard template.
type DashboardData struct {
	Page dashboard.Page
}

// AccountData is the input of the whoami template.
type AccountData struct {
	User      shared.User
	Expires   time.Time
	HasExpiry bool
	Expired   bool
}

var titleCase = cases.Title(language.English)

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("02 Jan 2006 15:04")
		},
		"roleLabel": RoleLabel,
		"cells": func(cols []string) string {
			return strings.Join(cols, "\t")
		},
		"row":    rowLine,
		"tabBar": tabBar,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template into w.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := e.templates.ExecuteTemplate(tw, name, data); err != nil {
		return err
	}
	return tw.Flush()
}

// RoleLabel capitalises a role for display.
func RoleLabel(role shared.Role) string {
	if role == "" {
		return "Guest"
	}
	return titleCase.String(string(role))
}

func rowLine(r dashboard.Row) string {
	cells := make([]string, len(r.Cells))
	copy(cells, r.Cells)
	if r.StatusEditable && len(cells) > 4 {
		cells[4] = "[" + cells[4] + "]"
		if r.Busy {
			cells[4] += " saving..."
		}
	}
	actions := make([]string, 0, len(r.Actions))
	for _, action := range r.Actions {
		if action == dashboard.ActionViewImage {
			actions = append(actions, fmt.Sprintf("%s <%s>", action, r.ImageURL))
			continue
		}
		actions = append(actions, string(action))
	}
	return strings.Join(append(cells, strings.Join(actions, ", ")), "\t")
}

func tabBar(tabs []dashboard.Tab, active dashboard.Tab) string {
	parts := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		if tab == active {
			parts = append(parts, "["+tab.Label()+"]")
			continue
		}
		parts = append(parts, tab.Label())
	}
	return strings.Join(parts, " | ")
}
