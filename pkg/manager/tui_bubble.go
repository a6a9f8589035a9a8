package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"sshdeck/pkg/sshconfig"
)

// TUIOptions carries everything the TUI needs; nothing is read from globals.
type TUIOptions struct {
	// Root is the working directory reloaded after every edit.
	Root string

	Registry *sshconfig.Registry
	Editor   *sshconfig.Editor
	Launcher Launcher

	// Timeout bounds the reachability probe.
	Timeout time.Duration

	State     *State
	StatePath string

	Log   zerolog.Logger
	Theme Theme

	// Clipboard copies text; defaults to the system clipboard.
	Clipboard func(string) error
}

// RunTUI runs the interactive browser until the user quits.
func RunTUI(opts TUIOptions) error {
	if opts.Registry == nil {
		return errors.New("nil registry")
	}
	if opts.Editor == nil {
		return errors.New("nil editor")
	}
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type uiMode int

const (
	modeList uiMode = iota
	modeSearch
	modeForm
	modeConfirm
	modeDelete
	modePopup
)

type probeDoneMsg struct {
	alias    string
	hostname string
	port     uint16
	ok       bool
}

type sshExitMsg struct {
	alias string
	err   error
}

// hostSource exposes the non-separator entries to fuzzy matching.
type hostSource struct {
	hosts []sshconfig.Host
	idx   []int // fuzzy index -> registry index
}

func newHostSource(hosts []sshconfig.Host) hostSource {
	s := hostSource{hosts: hosts}
	for i, h := range hosts {
		if !h.IsSeparator {
			s.idx = append(s.idx, i)
		}
	}
	return s
}

func (s hostSource) String(i int) string { return s.hosts[s.idx[i]].Name }
func (s hostSource) Len() int            { return len(s.idx) }

type model struct {
	opts  TUIOptions
	reg   *sshconfig.Registry
	theme Theme

	mode uiMode
	back uiMode

	cursor int
	scroll int

	search   textinput.Model
	source   hostSource
	matches  fuzzy.Matches
	matchSel int

	form    hostForm
	editing *sshconfig.Host
	pending sshconfig.HostBlock

	popupTitle string
	popupBody  string
	popupErr   bool

	probing bool
	spin    spinner.Model

	status    string
	statusErr bool

	width  int
	height int
}

func newModel(opts TUIOptions) model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProbeTimeout
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search hosts..."
	ti.CharLimit = 256
	ti.PromptStyle = ti.PromptStyle.Bold(true)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(opts.Theme.Title))

	m := model{
		opts:   opts,
		reg:    opts.Registry,
		theme:  opts.Theme,
		search: ti,
		spin:   sp,
	}
	m.source = newHostSource(m.reg.Hosts())
	m.cursor = m.reg.FirstSelectable()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureVisible()
		return m, nil

	case spinner.TickMsg:
		if !m.probing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case probeDoneMsg:
		m.probing = false
		if msg.ok {
			m.showPopup("Reachability", fmt.Sprintf("%s (%s) answered on port %d", msg.alias, msg.hostname, msg.port), false)
		} else {
			m.showPopup("Reachability", fmt.Sprintf("%s (%s) did not answer on port %d", msg.alias, msg.hostname, msg.port), true)
		}
		return m, nil

	case sshExitMsg:
		m.handleSSHExit(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeDelete:
			return m.updateDelete(msg)
		case modePopup:
			switch msg.String() {
			case "enter", "esc", "q":
				m.mode = m.back
			}
			return m, nil
		default:
			return m.updateList(msg)
		}
	}

	// Cursor blink and similar messages go to whichever input is focused.
	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.search, cmd = m.search.Update(msg)
	case modeForm:
		cmd = m.form.update(msg)
	}
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "home", "g":
		m.cursor = m.reg.FirstSelectable()
		m.ensureVisible()
	case "end", "G":
		m.cursor = m.lastSelectable()
		m.ensureVisible()
	case "/":
		m.mode = modeSearch
		m.search.Reset()
		m.matches = nil
		m.matchSel = 0
		cmd := m.search.Focus()
		return m, cmd
	case "a":
		return m.openForm(nil)
	case "e":
		if h, ok := m.current(); ok {
			return m.openForm(&h)
		}
	case "d":
		if _, ok := m.current(); ok {
			m.mode = modeDelete
		}
	case "p":
		return m.startProbe()
	case "y":
		m.copyCurrent()
	case "r":
		name := ""
		if h, ok := m.current(); ok {
			name = h.Name
		}
		if m.reload(name) {
			m.setStatus("reloaded", false)
		}
	case "enter":
		return m.connect()
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.mode = modeList
		return m, nil
	case "enter":
		if len(m.matches) > 0 {
			m.cursor = m.source.idx[m.matches[m.matchSel].Index]
			m.ensureVisible()
		}
		m.search.Blur()
		m.mode = modeList
		return m, nil
	case "up", "ctrl+p":
		if m.matchSel > 0 {
			m.matchSel--
		}
		return m, nil
	case "down", "ctrl+n":
		if m.matchSel < len(m.matches)-1 {
			m.matchSel++
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.recomputeSearch()
	return m, cmd
}

// recomputeSearch ranks hosts by fuzzy score against the query; best first.
func (m *model) recomputeSearch() {
	q := strings.TrimSpace(m.search.Value())
	if q == "" {
		m.matches = nil
	} else {
		m.matches = fuzzy.FindFrom(q, m.source)
	}
	if m.matchSel >= len(m.matches) {
		m.matchSel = max(0, len(m.matches)-1)
	}
}

func (m model) openForm(h *sshconfig.Host) (tea.Model, tea.Cmd) {
	var b sshconfig.HostBlock
	if h != nil {
		cp := *h
		m.editing = &cp
		b = sshconfig.FormFromHost(cp)
	} else {
		m.editing = nil
		if cur, ok := m.current(); ok {
			b.Folder = cur.Source
		}
	}
	m.form = newHostForm(b, m.reg.Folders())
	m.mode = modeForm
	cmd := m.form.setFocus(0)
	return m, cmd
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.editing = nil
		return m, nil
	case "tab", "down":
		cmd := m.form.next()
		return m, cmd
	case "shift+tab", "up":
		cmd := m.form.prev()
		return m, cmd
	case "enter":
		b := m.form.block().Normalize()
		if err := b.Validate(); err != nil {
			m.form.err = err
			return m, nil
		}
		m.form.err = nil
		m.pending = b
		m.mode = modeConfirm
		return m, nil
	}
	cmd := m.form.update(msg)
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.mode = modeForm
		return m, nil
	case "enter", "y":
		m.applyPending()
	}
	return m, nil
}

func (m *model) applyPending() {
	b := m.pending
	m.mode = modeList

	var err error
	verb := "added"
	if m.editing != nil {
		verb = "updated"
		_, err = m.opts.Editor.Update(*m.editing, b)
		if err == nil && m.opts.State != nil && m.opts.State.RenameRecent(m.editing.Name, b.Alias) {
			m.saveState()
		}
	} else {
		_, err = m.opts.Editor.Append(b)
	}
	m.editing = nil

	if err != nil {
		m.opts.Log.Error().Err(err).Str("alias", b.Alias).Msg("save host failed")
		m.showPopup("Save failed", err.Error(), true)
		return
	}
	if m.reload(b.Alias) {
		m.setStatus(fmt.Sprintf("%s %s", verb, b.Alias), false)
	}
}

func (m model) updateDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.mode = modeList
		h, ok := m.current()
		if !ok {
			return m, nil
		}
		removed, err := m.opts.Editor.RemoveEntry(h)
		if err != nil {
			m.opts.Log.Error().Err(err).Str("alias", h.Name).Msg("remove host failed")
			m.showPopup("Delete failed", err.Error(), true)
			return m, nil
		}
		if !removed {
			m.setStatus(fmt.Sprintf("%s not found in %s", h.Name, h.SourcePath), true)
			return m, nil
		}
		if m.opts.State != nil && m.opts.State.RemoveRecent(h.Name) {
			m.saveState()
		}
		if m.reload("") {
			m.setStatus(fmt.Sprintf("deleted %s", h.Name), false)
		}
	case "n", "esc", "q":
		m.mode = modeList
	}
	return m, nil
}

func (m model) startProbe() (tea.Model, tea.Cmd) {
	h, ok := m.current()
	if !ok || m.probing {
		return m, nil
	}
	if h.HostName == "" {
		m.showPopup("Reachability", fmt.Sprintf("%s has no Hostname configured", h.Name), true)
		return m, nil
	}
	port := h.Port
	if port == 0 {
		port = DefaultSSHPort
	}
	m.probing = true
	return m, tea.Batch(m.spin.Tick, probeCmd(h.Name, h.HostName, port, m.opts.Timeout))
}

func probeCmd(alias, hostname string, port uint16, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return probeDoneMsg{
			alias:    alias,
			hostname: hostname,
			port:     port,
			ok:       Probe(ctx, hostname, port, timeout),
		}
	}
}

func (m model) connect() (tea.Model, tea.Cmd) {
	h, ok := m.current()
	if !ok {
		return m, nil
	}
	alias := h.Name
	cmd := m.opts.Launcher.Command(alias)
	m.opts.Log.Info().Str("alias", alias).Strs("argv", cmd.Args).Msg("connecting")
	return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sshExitMsg{alias: alias, err: err}
	})
}

func (m *model) handleSSHExit(msg sshExitMsg) {
	if err := LaunchError(msg.err); err != nil {
		m.opts.Log.Warn().Err(err).Str("alias", msg.alias).Msg("ssh session failed")
		m.showPopup("SSH", fmt.Sprintf("connection to %s failed: %v", msg.alias, err), true)
		return
	}
	m.opts.Log.Info().Str("alias", msg.alias).Msg("ssh session ended")
	m.setStatus(fmt.Sprintf("session to %s ended", msg.alias), false)
	if m.opts.State != nil && m.opts.State.AddRecent(msg.alias) {
		m.saveState()
	}
}

func (m *model) copyCurrent() {
	h, ok := m.current()
	if !ok {
		return
	}
	text := strings.Join(m.opts.Launcher.Argv(h.Name), " ")
	if err := m.opts.Clipboard(text); err != nil {
		m.setStatus(fmt.Sprintf("copy failed: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("copied %q", text), false)
}

// reload re-parses the tree from disk and re-selects selectName when it is
// still present. It reports false (and shows a popup) when loading fails.
func (m *model) reload(selectName string) bool {
	reg, err := sshconfig.Load(m.opts.Root, sshconfig.WithLogger(m.opts.Log))
	if err != nil {
		m.opts.Log.Error().Err(err).Msg("reload failed")
		m.showPopup("Reload failed", err.Error(), true)
		return false
	}
	m.reg = reg
	m.source = newHostSource(reg.Hosts())

	if i := reg.Index(selectName); selectName != "" && i >= 0 {
		m.cursor = i
	} else if h, ok := reg.At(m.cursor); !ok || h.IsSeparator {
		m.cursor = reg.FirstSelectable()
	}
	m.ensureVisible()
	return true
}

func (m *model) saveState() {
	if m.opts.StatePath == "" || m.opts.State == nil {
		return
	}
	if err := SaveState(m.opts.StatePath, m.opts.State); err != nil {
		m.opts.Log.Warn().Err(err).Msg("save state failed")
	}
}

func (m *model) showPopup(title, body string, isErr bool) {
	if m.mode != modePopup {
		m.back = m.mode
	}
	if m.back == modeConfirm || m.back == modeDelete {
		m.back = modeList
	}
	m.popupTitle, m.popupBody, m.popupErr = title, body, isErr
	m.mode = modePopup
}

func (m *model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

// current returns the selected entry when it is a connectable host.
func (m model) current() (sshconfig.Host, bool) {
	h, ok := m.reg.At(m.cursor)
	if !ok || h.IsSeparator {
		return sshconfig.Host{}, false
	}
	return h, true
}

// move steps the cursor by delta, wrapping around and skipping separators.
func (m *model) move(delta int) {
	n := m.reg.Len()
	if n == 0 {
		return
	}
	i := m.cursor
	for step := 0; step < n; step++ {
		i = ((i+delta)%n + n) % n
		if h, _ := m.reg.At(i); !h.IsSeparator {
			m.cursor = i
			break
		}
	}
	m.ensureVisible()
}

func (m model) lastSelectable() int {
	for i := m.reg.Len() - 1; i >= 0; i-- {
		if h, _ := m.reg.At(i); !h.IsSeparator {
			return i
		}
	}
	return 0
}

func (m model) listHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(3, m.height-7)
}

func (m *model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+h {
		m.scroll = m.cursor - h + 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// ---------- View ----------

func (m model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm()
	case modeConfirm:
		return m.viewConfirm()
	case modeSearch:
		return m.viewSearch()
	case modePopup:
		return m.viewPopup()
	}
	return m.viewList()
}

func (m model) header() string {
	return m.theme.Title.Render("sshdeck") + "  " + m.theme.Dim.Render(sshconfig.RootConfigPath(m.opts.Root))
}

func (m model) paneWidths() (int, int) {
	if m.width <= 0 {
		return 38, 48
	}
	left := m.width/2 - 2
	return left, m.width - left - 4
}

func (m model) viewList() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	leftW, rightW := m.paneWidths()
	left := m.theme.Pane.Width(leftW).Render(m.renderEntries())
	right := m.theme.Pane.Width(rightW).Render(m.renderDetails())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")

	switch {
	case m.mode == modeDelete:
		h, _ := m.current()
		b.WriteString(m.theme.Warn.Render(fmt.Sprintf("Delete %s from %s? (y/n)", h.Name, h.SourcePath)))
	case m.probing:
		b.WriteString(m.spin.View() + " probing...")
	case m.status != "":
		style := m.theme.Success
		if m.statusErr {
			style = m.theme.Error
		}
		b.WriteString(style.Render(m.status))
	default:
		b.WriteString(m.theme.Help.Render("↑/↓ move • enter connect • / search • a add • e edit • d delete • p probe • y copy • r reload • q quit"))
	}
	return b.String()
}

func (m model) renderEntries() string {
	if m.reg.Len() == 0 {
		return m.theme.Dim.Render("no hosts yet, press a to add one")
	}
	end := min(m.reg.Len(), m.scroll+m.listHeight())
	lines := make([]string, 0, end-m.scroll)
	for i := m.scroll; i < end; i++ {
		h, _ := m.reg.At(i)
		switch {
		case h.IsSeparator:
			lines = append(lines, m.theme.Separator.Render(h.Name))
		case i == m.cursor:
			lines = append(lines, m.theme.Selected.Render("> "+h.Name))
		default:
			lines = append(lines, m.theme.Normal.Render("  "+h.Name))
		}
	}
	return strings.Join(lines, "\n")
}

func (m model) renderDetails() string {
	h, ok := m.current()
	if !ok {
		return m.theme.Dim.Render("no host selected")
	}
	return strings.Join(m.detailLines(h), "\n")
}

func (m model) detailLines(h sshconfig.Host) []string {
	row := func(k, v string) string {
		return m.theme.Label.Render(fmt.Sprintf("%-14s", k)) + v
	}
	lines := []string{row("Host", h.Name)}
	if h.HostName != "" {
		lines = append(lines, row("Hostname", h.HostName))
	}
	if h.User != "" {
		lines = append(lines, row("User", h.User))
	}
	if h.HasPort() {
		lines = append(lines, row("Port", h.PortString()))
	}
	if h.IdentityFile != "" {
		lines = append(lines, row("IdentityFile", h.IdentityFile))
	}
	for _, k := range h.OptionKeys() {
		lines = append(lines, row(k, h.Options[k]))
	}

	folder := h.Source
	if folder == "" {
		folder = "(root config)"
	}
	lines = append(lines, "", row("Folder", folder))
	if h.SourcePath != "" {
		lines = append(lines, m.theme.Dim.Render(fmt.Sprintf("%s:%d", h.SourcePath, h.Line)))
	}
	if m.opts.State != nil {
		if rank := m.opts.State.RecentRank(h.Name); rank >= 0 {
			lines = append(lines, row("Recent", fmt.Sprintf("#%d", rank+1)))
		}
	}
	return lines
}

func (m model) viewSearch() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.search.View())
	b.WriteString("\n\n")

	switch {
	case strings.TrimSpace(m.search.Value()) == "":
		b.WriteString(m.theme.Dim.Render("type to search..."))
	case len(m.matches) == 0:
		b.WriteString(m.theme.Dim.Render("no matches"))
	default:
		b.WriteString(m.theme.Dim.Render(fmt.Sprintf("%d result(s)", len(m.matches))))
		b.WriteString("\n")
		limit := min(len(m.matches), m.listHeight())
		for i := 0; i < limit; i++ {
			name := m.matches[i].Str
			if i == m.matchSel {
				b.WriteString(m.theme.Selected.Render("> " + name))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render("↑/↓ choose • enter select • esc cancel"))
	return b.String()
}

func (m model) viewForm() string {
	title := "Add host"
	if m.editing != nil {
		title = "Edit " + m.editing.Name
	}
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.form.view(m.theme))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Help.Render("tab/shift+tab move • enter review • esc cancel"))
	return b.String()
}

func (m model) viewConfirm() string {
	title := "Confirm new host"
	if m.editing != nil {
		title = "Confirm changes"
	}
	target := sshconfig.FolderConfigPath(m.opts.Root, m.pending.Folder)

	var b strings.Builder
	b.WriteString(m.theme.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Dim.Render("append to " + target))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Pane.Render(strings.Join(m.pending.Lines(), "\n")))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Help.Render("enter/y save • esc/n back to form"))
	return b.String()
}

func (m model) viewPopup() string {
	title := m.theme.Title.Render(m.popupTitle)
	body := m.theme.Success.Render(m.popupBody)
	if m.popupErr {
		body = m.theme.Error.Render(m.popupBody)
	}
	box := m.theme.Popup.Width(min(60, max(30, m.width-4))).Render(
		title + "\n\n" + body + "\n\n" + m.theme.Help.Render("enter/esc close"),
	)
	if m.width <= 0 || m.height <= 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
