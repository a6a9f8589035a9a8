package manager

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"sshdeck/pkg/sshconfig"
)

const (
	fieldFolder = iota
	fieldHost
	fieldHostName
	fieldUser
	fieldPort
	fieldIdentityFile
	fieldLocalForward
	fieldCount
)

var formLabels = [fieldCount]string{
	"Folder",
	"Host",
	"Hostname",
	"User",
	"Port",
	"IdentityFile",
	"LocalForward",
}

// hostForm is the add/edit form: one text input per HostBlock field.
type hostForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	err    error
}

func newHostForm(b sshconfig.HostBlock, folders []string) hostForm {
	values := [fieldCount]string{
		b.Folder, b.Alias, b.HostName, b.User, b.Port, b.IdentityFile, b.LocalForward,
	}

	folderHint := "empty = root config"
	if len(folders) > 0 {
		folderHint = "existing: " + strings.Join(folders, ", ")
	}
	placeholders := [fieldCount]string{
		folderHint,
		"alias used with ssh <alias>",
		"example.com or 10.0.0.5",
		"login user",
		"22",
		"~/.ssh/id_ed25519",
		"8080 localhost:80",
	}

	var f hostForm
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = fmt.Sprintf("%-14s", formLabels[i]+":")
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 512
		ti.SetValue(values[i])
		f.inputs[i] = ti
	}
	f.inputs[fieldPort].CharLimit = 5
	return f
}

// block reads the current input values back into a HostBlock.
func (f hostForm) block() sshconfig.HostBlock {
	return sshconfig.HostBlock{
		Folder:       f.inputs[fieldFolder].Value(),
		Alias:        f.inputs[fieldHost].Value(),
		HostName:     f.inputs[fieldHostName].Value(),
		User:         f.inputs[fieldUser].Value(),
		Port:         f.inputs[fieldPort].Value(),
		IdentityFile: f.inputs[fieldIdentityFile].Value(),
		LocalForward: f.inputs[fieldLocalForward].Value(),
	}
}

func (f *hostForm) setFocus(i int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = ((i % fieldCount) + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *hostForm) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *hostForm) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

func (f *hostForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f hostForm) view(t Theme) string {
	var b strings.Builder
	for i := range f.inputs {
		if i == f.focus {
			b.WriteString(t.Selected.Render("›"))
		} else {
			b.WriteString(" ")
		}
		b.WriteString(" ")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	if f.err != nil {
		b.WriteString("\n")
		for _, line := range strings.Split(f.err.Error(), "\n") {
			b.WriteString(t.Error.Render("• " + line))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
