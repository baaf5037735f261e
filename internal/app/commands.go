package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/messagelist/internal/core"
	"github.com/nhle/messagelist/internal/ui/command"
)

// executeCommand runs a command palette entry against the list.
func (m Model) executeCommand(c command.CommandMsg) (tea.Model, tea.Cmd) {
	verb, arg := c.Verb()
	e := m.list.Engine()

	var (
		cmd tea.Cmd
		err error
	)
	switch verb {
	case "quit", "q":
		return m, tea.Quit

	case "refresh":
		m.poller.RefreshAll()
		m.statusMsg = "refreshing sources..."

	case "reload":
		err = m.list.Reload(context.Background())

	case "configure", "config":
		m.previousView = ViewList
		m.currentView = ViewConfig
		return m, m.configView.Init()

	case "expand", "collapse":
		if arg != "all" {
			err = fmt.Errorf("usage: %s all", verb)
			break
		}
		if verb == "expand" {
			m.list.ExpandAll()
		} else {
			m.list.CollapseAll()
		}

	case "filter":
		m.list.SetFilterText(arg)

	case "clear":
		e.SetFilter(core.Filter{})

	case "group", "thread", "leader":
		a := e.Aggregation()
		switch verb {
		case "group":
			a.Grouping, err = core.ParseGrouping(arg)
		case "thread":
			a.Threading, err = core.ParseThreading(arg)
		case "leader":
			a.ThreadLeader, err = core.ParseThreadLeader(arg)
		}
		if err == nil {
			cmd = m.list.SetAggregation(a)
		}

	case "sort", "groupsort":
		var s core.SortOrder
		s, err = parseSortCommand(verb, arg, e.SortOrder())
		if err == nil {
			cmd = m.list.SetSortOrder(s)
		}

	default:
		err = fmt.Errorf("unknown command %q", verb)
	}

	if err != nil {
		m.statusMsg = err.Error()
	}
	return m, tea.Batch(cmd, m.list.Refresh())
}

// parseSortCommand applies "<sorting> [ascending|descending]" to s.
func parseSortCommand(verb, arg string, s core.SortOrder) (core.SortOrder, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 || len(fields) > 2 {
		return s, fmt.Errorf("usage: %s <name> [ascending|descending]", verb)
	}

	var err error
	if verb == "groupsort" {
		s.GroupSorting, err = core.ParseGroupSorting(fields[0])
	} else {
		s.MessageSorting, err = core.ParseMessageSorting(fields[0])
	}
	if err != nil || len(fields) == 1 {
		return s, err
	}

	if verb == "groupsort" {
		s.GroupSortDirection, err = core.ParseSortDirection(fields[1])
	} else {
		s.MessageSortDirection, err = core.ParseSortDirection(fields[1])
	}
	return s, err
}
