package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/casaops/go-smarther/sdk/smarther"
)

const (
	requestTimeout       = 15 * time.Second
	refreshInterval      = 30 * time.Second
	boostDuration        = 30 * time.Minute
	maxActivityLines     = 200
	visibleActivityLines = 8
)

// target is one controllable chronothermostat discovered from the topology.
type target struct {
	plantID   string
	plantName string
	moduleID  string
	name      string
}

// App is the root bubbletea model for the thermostat dashboard.
type App struct {
	client *smarther.AuthorizedClient
	hook   *LogHook

	viewport  viewport.Model
	targets   []target
	selected  int
	status    *smarther.ThermostatStatus
	fetchedAt time.Time
	err       error
	notice    string
	busy      bool

	entering  bool
	tempInput textinput.Model

	activity []string

	width  int
	height int
	ready  bool
}

type devicesMsg struct {
	targets []target
	err     error
}

type statusMsg struct {
	index  int
	status *smarther.ThermostatStatus
	err    error
}

type actionMsg struct {
	index int
	label string
	err   error
}

type refreshTickMsg struct{}

type activityLineMsg string

// NewApp creates the dashboard model for an already authorized client. hook
// may be nil when no log feed is wanted.
func NewApp(client *smarther.AuthorizedClient, hook *LogHook) App {
	ti := textinput.New()
	ti.Prompt = "set point (°C): "
	ti.CharLimit = 6
	ti.Width = 12
	return App{
		client:    client,
		hook:      hook,
		tempInput: ti,
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.fetchDevices, a.scheduleRefresh()}
	if a.hook != nil {
		cmds = append(cmds, a.waitForActivity)
	}
	return tea.Batch(cmds...)
}

func (a App) fetchDevices() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	plants, err := a.client.GetPlants(ctx)
	if err != nil {
		return devicesMsg{err: err}
	}
	var targets []target
	for _, plant := range plants.Plants {
		topology, errTopology := a.client.GetTopology(ctx, plant.ID)
		if errTopology != nil {
			return devicesMsg{err: errTopology}
		}
		plantName := topology.Plant.Name
		if plantName == "" {
			plantName = plant.Name
		}
		for _, module := range topology.Plant.Modules {
			name := module.Name
			if name == "" {
				name = module.ID
			}
			targets = append(targets, target{
				plantID:   plant.ID,
				plantName: plantName,
				moduleID:  module.ID,
				name:      name,
			})
		}
	}
	return devicesMsg{targets: targets}
}

func (a App) fetchStatus(index int) tea.Cmd {
	client := a.client
	targets := a.targets
	return func() tea.Msg {
		if index < 0 || index >= len(targets) {
			return statusMsg{index: index}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		status, err := client.GetDeviceStatus(ctx, targets[index].plantID, targets[index].moduleID)
		if err != nil {
			return statusMsg{index: index, err: err}
		}
		if len(status.Chronothermostats) == 0 {
			return statusMsg{index: index, err: fmt.Errorf("device reported no chronothermostat status")}
		}
		return statusMsg{index: index, status: &status.Chronothermostats[0]}
	}
}

func (a App) applyStatus(label string, request smarther.SetStatusRequest) tea.Cmd {
	client := a.client
	targets := a.targets
	index := a.selected
	return func() tea.Msg {
		if index < 0 || index >= len(targets) {
			return actionMsg{index: index, label: label}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := client.SetDeviceStatus(ctx, targets[index].plantID, targets[index].moduleID, &request)
		return actionMsg{index: index, label: label, err: err}
	}
}

func (a App) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(_ time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (a App) waitForActivity() tea.Msg {
	line, ok := <-a.hook.Chan()
	if !ok {
		return nil
	}
	return activityLineMsg(line)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentH := a.height - 4 // module bar + status bar
		if contentH < 1 {
			contentH = 1
		}
		if !a.ready {
			a.viewport = viewport.New(a.width, contentH)
			a.ready = true
		} else {
			a.viewport.Width = a.width
			a.viewport.Height = contentH
		}
		a.refreshViewport()
		return a, nil

	case devicesMsg:
		if msg.err != nil {
			a.err = msg.err
			a.refreshViewport()
			return a, nil
		}
		a.err = nil
		a.targets = msg.targets
		a.selected = 0
		if len(a.targets) == 0 {
			a.notice = "no chronothermostat modules found"
			a.refreshViewport()
			return a, nil
		}
		a.refreshViewport()
		return a, a.fetchStatus(a.selected)

	case statusMsg:
		if msg.index != a.selected {
			// Stale fetch for a previously selected module.
			return a, nil
		}
		if msg.err != nil {
			a.err = msg.err
		} else {
			a.err = nil
			a.status = msg.status
			a.fetchedAt = time.Now()
		}
		a.refreshViewport()
		return a, nil

	case actionMsg:
		a.busy = false
		if msg.err != nil {
			a.err = msg.err
			a.notice = ""
			a.refreshViewport()
			return a, nil
		}
		a.err = nil
		a.notice = msg.label + " requested"
		a.refreshViewport()
		if msg.index == a.selected {
			return a, a.fetchStatus(a.selected)
		}
		return a, nil

	case refreshTickMsg:
		cmds := []tea.Cmd{a.scheduleRefresh()}
		if len(a.targets) > 0 && !a.busy {
			cmds = append(cmds, a.fetchStatus(a.selected))
		}
		return a, tea.Batch(cmds...)

	case activityLineMsg:
		a.activity = append(a.activity, string(msg))
		if len(a.activity) > maxActivityLines {
			a.activity = a.activity[len(a.activity)-maxActivityLines:]
		}
		a.refreshViewport()
		return a, a.waitForActivity

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.entering {
		switch msg.String() {
		case "esc":
			a.entering = false
			a.tempInput.Blur()
			a.refreshViewport()
			return a, nil
		case "enter":
			raw := strings.TrimSpace(a.tempInput.Value())
			value, errParse := strconv.ParseFloat(raw, 64)
			if errParse != nil {
				a.notice = fmt.Sprintf("invalid temperature %q", raw)
				a.refreshViewport()
				return a, nil
			}
			a.entering = false
			a.tempInput.Blur()
			setPoint := smarther.Celsius(value)
			request := smarther.SetStatusRequest{
				Function: a.currentFunction(),
				Mode:     smarther.ModeManual,
				SetPoint: &setPoint,
			}
			a.busy = true
			a.notice = fmt.Sprintf("setting %.1f°C...", value)
			a.refreshViewport()
			return a, a.applyStatus(fmt.Sprintf("manual %.1f°C", value), request)
		default:
			var cmd tea.Cmd
			a.tempInput, cmd = a.tempInput.Update(msg)
			a.refreshViewport()
			return a, cmd
		}
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "r":
		if len(a.targets) == 0 {
			return a, a.fetchDevices
		}
		return a, a.fetchStatus(a.selected)
	case "tab", "right":
		return a.selectModule(a.selected + 1)
	case "shift+tab", "left":
		return a.selectModule(a.selected - 1)
	case "b":
		if a.busy || len(a.targets) == 0 {
			return a, nil
		}
		request := smarther.SetStatusRequest{
			Function:       a.currentFunction(),
			Mode:           smarther.ModeBoost,
			ActivationTime: time.Now().UTC().Add(boostDuration).Format("2006-01-02T15:04:05Z"),
		}
		a.busy = true
		a.notice = "starting boost..."
		a.refreshViewport()
		return a, a.applyStatus("30 minute boost", request)
	case "o":
		if a.busy || len(a.targets) == 0 {
			return a, nil
		}
		request := smarther.SetStatusRequest{
			Function: a.currentFunction(),
			Mode:     smarther.ModeOff,
		}
		a.busy = true
		a.notice = "turning off..."
		a.refreshViewport()
		return a, a.applyStatus("off", request)
	case "a":
		if a.busy || len(a.targets) == 0 {
			return a, nil
		}
		request := smarther.SetStatusRequest{
			Function: a.currentFunction(),
			Mode:     smarther.ModeAutomatic,
			Programs: []smarther.ProgramIdentifier{{Number: a.currentProgram()}},
		}
		a.busy = true
		a.notice = "returning to schedule..."
		a.refreshViewport()
		return a, a.applyStatus("automatic mode", request)
	case "m":
		if a.busy || len(a.targets) == 0 {
			return a, nil
		}
		a.entering = true
		a.tempInput.SetValue("")
		a.tempInput.Focus()
		a.refreshViewport()
		return a, textinput.Blink
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a App) selectModule(index int) (tea.Model, tea.Cmd) {
	if len(a.targets) == 0 {
		return a, nil
	}
	a.selected = (index + len(a.targets)) % len(a.targets)
	a.status = nil
	a.err = nil
	a.notice = ""
	a.refreshViewport()
	return a, a.fetchStatus(a.selected)
}

func (a App) currentFunction() smarther.ThermostatFunction {
	if a.status != nil && a.status.Function != "" {
		return a.status.Function
	}
	return smarther.FunctionHeating
}

func (a App) currentProgram() int {
	if a.status != nil && len(a.status.Programs) > 0 {
		return a.status.Programs[0].Number
	}
	return 0
}

func (a *App) refreshViewport() {
	if a.ready {
		a.viewport.SetContent(a.renderContent())
	}
}

func (a App) View() string {
	if !a.ready {
		return "initializing..."
	}

	var sb strings.Builder
	sb.WriteString(a.renderModuleBar())
	sb.WriteString("\n")
	sb.WriteString(a.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(a.renderStatusBar())
	return sb.String()
}

func (a App) renderModuleBar() string {
	if len(a.targets) == 0 {
		return moduleBarStyle.Width(a.width).Render(moduleInactiveStyle.Render("discovering modules..."))
	}
	var entries []string
	for i, t := range a.targets {
		if i == a.selected {
			entries = append(entries, moduleActiveStyle.Render(t.name))
		} else {
			entries = append(entries, moduleInactiveStyle.Render(t.name))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, entries...)
	return moduleBarStyle.Width(a.width).Render(bar)
}

func (a App) renderStatusBar() string {
	left := "q quit · r refresh · tab module · b boost · m manual · a auto · o off"
	right := ""
	if !a.fetchedAt.IsZero() {
		right = "updated " + a.fetchedAt.Format("15:04:05")
	}

	width := a.width
	if width < 1 {
		width = 1
	}
	contentWidth := width - 2
	if contentWidth < 0 {
		contentWidth = 0
	}
	if lipgloss.Width(left) > contentWidth {
		left = fitWidth(left, contentWidth)
		right = ""
	}
	gap := contentWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
		right = ""
	}
	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (a App) renderContent() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Smarther Thermostat"))
	sb.WriteString("\n")

	if len(a.targets) == 0 {
		if a.err != nil {
			sb.WriteString(errorStyle.Render("error: " + a.err.Error()))
			sb.WriteString("\n")
			sb.WriteString(helpStyle.Render("press r to retry"))
		} else if a.notice != "" {
			sb.WriteString(subtitleStyle.Render(a.notice))
		} else {
			sb.WriteString(subtitleStyle.Render("discovering plants and modules..."))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	t := a.targets[a.selected]
	sb.WriteString(subtitleStyle.Render(fmt.Sprintf("%s · %s", t.plantName, t.moduleID)))
	sb.WriteString("\n\n")

	if a.err != nil {
		sb.WriteString(errorStyle.Render("error: " + a.err.Error()))
		sb.WriteString("\n\n")
	}

	if a.status == nil {
		sb.WriteString(subtitleStyle.Render("loading status..."))
		sb.WriteString("\n")
		return sb.String()
	}
	status := a.status

	cardWidth := 22
	if a.width > 0 {
		cardWidth = (a.width - 4) / 3
		if cardWidth < 16 {
			cardWidth = 16
		}
		if cardWidth > 28 {
			cardWidth = 28
		}
	}
	card := cardStyle.Width(cardWidth)

	temperature := "--"
	if m, ok := latestMeasure(status.Thermometer); ok {
		temperature = fmt.Sprintf("%.1f°%s", m.Value, m.Unit)
	}
	humidity := "--"
	if m, ok := latestMeasure(status.Hygrometer); ok {
		humidity = fmt.Sprintf("%.0f%%", m.Value)
	}
	load := modeOffStyle.Render("idle")
	if status.LoadState == smarther.LoadStateActive {
		verb := "heating"
		if status.Function == smarther.FunctionCooling {
			verb = "cooling"
		}
		load = successStyle.Render(verb)
	}

	readingStyle := lipgloss.NewStyle().Bold(true).Foreground(colorInfo)
	tempCard := card.Render(fmt.Sprintf("%s\n%s", readingStyle.Render(temperature), helpStyle.Render("temperature")))
	humidityCard := card.Render(fmt.Sprintf("%s\n%s", readingStyle.Render(humidity), helpStyle.Render("humidity")))
	loadCard := card.Render(fmt.Sprintf("%s\n%s", load, helpStyle.Render("load")))

	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tempCard, " ", humidityCard, " ", loadCard))
	sb.WriteString("\n\n")

	sb.WriteString(formatKV("function", valueStyle.Render(string(status.Function))))
	sb.WriteString(formatKV("mode", modeStyle(status.Mode).Render(string(status.Mode))))
	if status.SetPoint != nil {
		sb.WriteString(formatKV("set point", valueStyle.Render(fmt.Sprintf("%.1f°%s", status.SetPoint.Value, status.SetPoint.Unit))))
	}
	if status.Mode == smarther.ModeBoost && status.ActivationTime != "" {
		sb.WriteString(formatKV("boost until", warningStyle.Render(status.ActivationTime)))
	}
	if len(status.Programs) > 0 {
		numbers := make([]string, 0, len(status.Programs))
		for _, p := range status.Programs {
			numbers = append(numbers, strconv.Itoa(p.Number))
		}
		sb.WriteString(formatKV("programs", valueStyle.Render(strings.Join(numbers, ", "))))
	}
	if !status.Time.IsZero() {
		sb.WriteString(formatKV("measured at", valueStyle.Render(status.Time.Local().Format("2006-01-02 15:04:05"))))
	}

	sb.WriteString("\n")
	if a.entering {
		sb.WriteString("  " + a.tempInput.View())
		sb.WriteString("\n")
		sb.WriteString(helpStyle.Render("  enter to apply, esc to cancel"))
		sb.WriteString("\n")
	} else if a.busy {
		sb.WriteString(warningStyle.Render("  " + a.notice))
		sb.WriteString("\n")
	} else if a.notice != "" {
		sb.WriteString(successStyle.Render("  " + a.notice))
		sb.WriteString("\n")
	}

	if len(a.activity) > 0 {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorHighlight).Render("Activity"))
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("─", minInt(a.width, 60)))
		sb.WriteString("\n")
		start := 0
		if len(a.activity) > visibleActivityLines {
			start = len(a.activity) - visibleActivityLines
		}
		for _, line := range a.activity[start:] {
			sb.WriteString(styleActivityLine(line))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func formatKV(key, value string) string {
	return fmt.Sprintf("  %s %s\n", labelStyle.Render(key+":"), value)
}

func latestMeasure(instrument *smarther.Instrument) (smarther.TimedMeasurement, bool) {
	if instrument == nil || len(instrument.Measures) == 0 {
		return smarther.TimedMeasurement{}, false
	}
	return instrument.Measures[len(instrument.Measures)-1], true
}

func styleActivityLine(line string) string {
	if strings.Contains(line, "[error") || strings.Contains(line, "[fatal") {
		return activityErrorStyle.Render(line)
	}
	if strings.Contains(line, "[warn") {
		return activityWarnStyle.Render(line)
	}
	return activityInfoStyle.Render(line)
}

func fitWidth(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= maxWidth {
		return text
	}
	out := ""
	for _, r := range text {
		next := out + string(r)
		if lipgloss.Width(next) > maxWidth {
			break
		}
		out = next
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run starts the dashboard. output specifies where bubbletea renders; if nil
// it defaults to os.Stdout.
func Run(client *smarther.AuthorizedClient, hook *LogHook, output io.Writer) error {
	if output == nil {
		output = os.Stdout
	}
	app := NewApp(client, hook)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithOutput(output))
	_, err := p.Run()
	return err
}
