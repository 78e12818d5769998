package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	flecs "github.com/oliverbestmann/flecs-go"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type treeItem struct {
	entity flecs.Entity
	label  string
	depth  int
}

type focus int

const (
	focusTree focus = iota
	focusQuery
)

type inspectorModel struct {
	world    *flecs.World
	exec     flecs.ExecOptions
	items    []treeItem
	selected int
	focus    focus
	input    textinput.Model
	detail   viewport.Model
	width    int
	height   int
	err      error
}

func runInteractive(world *flecs.World, exec flecs.ExecOptions) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("interactive mode requires a terminal")
	}

	width, height, err := term.GetSize(fd)
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}

	m := newInspectorModel(world, exec, width, height)

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func newInspectorModel(world *flecs.World, exec flecs.ExecOptions, width, height int) *inspectorModel {
	input := textinput.New()
	input.Prompt = "query> "
	input.Placeholder = "Position, (ChildOf, $parent)"

	m := &inspectorModel{
		world:  world,
		exec:   exec,
		input:  input,
		detail: viewport.New(0, 0),
	}

	m.resize(width, height)
	m.refresh()

	return m
}

func (m *inspectorModel) Init() tea.Cmd {
	return nil
}

// refresh rebuilds the entity tree and shows the selected entity.
func (m *inspectorModel) refresh() {
	items, err := entityTree(m.world)
	if err != nil {
		m.err = err
		return
	}

	m.items = items
	m.selected = min(m.selected, max(0, len(items)-1))
	m.showSelected()
}

// entityTree lists the entities of the world ordered by path.
func entityTree(world *flecs.World) ([]treeItem, error) {
	dumps, err := world.ToJSON()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(dumps, func(a, b flecs.EntityDump) int {
		return strings.Compare(a.Path(), b.Path())
	})

	items := make([]treeItem, 0, len(dumps))
	for _, dump := range dumps {
		label := dump.Name
		if label == "" {
			label = dump.Id.String()
		}

		depth := 0
		if dump.Parent != "" {
			depth = strings.Count(dump.Parent, ".") + 1
		}

		items = append(items, treeItem{
			entity: world.Entity(dump.Id),
			label:  label,
			depth:  depth,
		})
	}

	return items, nil
}

func (m *inspectorModel) showSelected() {
	if len(m.items) == 0 {
		m.detail.SetContent("the world has no entities")
		return
	}

	dump, err := m.items[m.selected].entity.ToJSON()
	if err != nil {
		m.detail.SetContent(errorStyle.Render(err.Error()))
		return
	}

	m.setJSON(dump)
}

func (m *inspectorModel) runQuery(expr string) {
	q, err := m.world.Query(expr)
	if err != nil {
		m.detail.SetContent(errorStyle.Render(err.Error()))
		return
	}

	defer q.Close()

	rows, err := q.Exec(m.exec)
	if err != nil {
		m.detail.SetContent(errorStyle.Render(err.Error()))
		return
	}

	m.setJSON(rows)
}

func (m *inspectorModel) setJSON(value any) {
	buf, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		m.detail.SetContent(errorStyle.Render(err.Error()))
		return
	}

	m.detail.SetContent(string(buf))
	m.detail.GotoTop()
}

func (m *inspectorModel) resize(width, height int) {
	m.width, m.height = width, height

	// title, prompt and help take three lines, the borders two
	m.detail.Width = max(10, width-m.treeWidth()-4)
	m.detail.Height = max(3, height-5)
	m.input.Width = max(10, width-10)
}

func (m *inspectorModel) treeWidth() int {
	return max(20, m.width/3)
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "tab":
			if m.focus == focusTree {
				m.focus = focusQuery
				return m, m.input.Focus()
			}

			m.focus = focusTree
			m.input.Blur()
			return m, nil
		}

		if m.focus == focusQuery {
			return m.updateQuery(msg)
		}

		return m.updateTree(msg)
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *inspectorModel) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
			m.showSelected()
		}

	case "down", "j":
		if m.selected < len(m.items)-1 {
			m.selected++
			m.showSelected()
		}

	case "r":
		m.refresh()

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *inspectorModel) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if expr := strings.TrimSpace(m.input.Value()); expr != "" {
			m.runQuery(expr)
		}

		return m, nil

	case "esc":
		m.input.SetValue("")
		m.showSelected()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *inspectorModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}

	var tree strings.Builder
	for idx, item := range m.visibleItems() {
		line := strings.Repeat("  ", item.depth) + item.label
		if idx+m.offset() == m.selected {
			line = selectedStyle.Render(line)
		}

		tree.WriteString(line)
		tree.WriteString("\n")
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(m.treeWidth()).Height(m.detail.Height).Render(tree.String()),
		paneStyle.Render(m.detail.View()),
	)

	var b strings.Builder
	b.WriteString(titleStyle.Render("flecsh"))
	b.WriteString(fmt.Sprintf(" %d entities\n", len(m.items)))
	b.WriteString(panes)
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • tab query • enter run • esc back • r refresh • q quit"))

	return b.String()
}

// offset is the index of the first visible tree item.
func (m *inspectorModel) offset() int {
	return max(0, m.selected-m.detail.Height+1)
}

func (m *inspectorModel) visibleItems() []treeItem {
	start := m.offset()
	end := min(len(m.items), start+m.detail.Height)
	return m.items[start:end]
}
