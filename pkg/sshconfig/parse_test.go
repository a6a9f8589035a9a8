package sshconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func names(hosts []Host) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.Name)
	}
	return out
}

func TestParse_TwoHostsInOrder(t *testing.T) {
	hosts, err := Parse(strings.NewReader("Host a\nHostname h\n\nHost b\nHostname h2\n"), t.TempDir(), "")
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	assert.Equal(t, "a", hosts[0].Name)
	assert.Equal(t, "h", hosts[0].HostName)
	assert.Equal(t, "b", hosts[1].Name)
	assert.Equal(t, "h2", hosts[1].HostName)
}

func TestParse_Directives(t *testing.T) {
	src := `# leading comment
Host prod
    HostName 10.0.0.1
    USER deploy
    Port 2222
    IdentityFile ~/.ssh/id_ed25519
    ForwardAgent yes
    LocalForward 8080 localhost:80
    forwardagent no
    # indented comment
`
	hosts, err := Parse(strings.NewReader(src), t.TempDir(), "work")
	require.NoError(t, err)
	require.Len(t, hosts, 1)

	h := hosts[0]
	assert.Equal(t, "prod", h.Name)
	assert.Equal(t, "10.0.0.1", h.HostName)
	assert.Equal(t, "deploy", h.User)
	assert.Equal(t, uint16(2222), h.Port)
	assert.Equal(t, "~/.ssh/id_ed25519", h.IdentityFile)
	assert.Equal(t, "work", h.Source)
	assert.Equal(t, 2, h.Line)
	assert.False(t, h.IsSeparator)
	assert.Equal(t, map[string]string{
		"forwardagent": "no",
		"localforward": "8080 localhost:80",
	}, h.Options)
}

func TestParse_BadPortLeavesUnset(t *testing.T) {
	hosts, err := Parse(strings.NewReader("Host a\nPort notanumber\n"), t.TempDir(), "")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.False(t, hosts[0].HasPort())

	for _, p := range []string{"0", "65536", "-1", "22x"} {
		hosts, err := Parse(strings.NewReader("Host a\nPort "+p+"\n"), t.TempDir(), "")
		require.NoError(t, err)
		assert.Zero(t, hosts[0].Port, "port %q", p)
	}
}

func TestParse_DirectivesBeforeHostAreDropped(t *testing.T) {
	src := "HostName orphan\nUser nobody\nServerAliveInterval 30\nHost a\nUser me\n"
	hosts, err := Parse(strings.NewReader(src), t.TempDir(), "")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "me", hosts[0].User)
	assert.Empty(t, hosts[0].HostName)
	assert.Nil(t, hosts[0].Options)
}

func TestParse_WhitespaceSplit(t *testing.T) {
	src := "Host\tweird alias  \nHostName   spaced\n  LocalForward\t 1 2  3 \nLonelyKeyword\n"
	hosts, err := Parse(strings.NewReader(src), t.TempDir(), "")
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "weird alias", hosts[0].Name)
	assert.Equal(t, "spaced", hosts[0].HostName)
	assert.Equal(t, "1 2  3", hosts[0].Options["localforward"])
	assert.NotContains(t, hosts[0].Options, "lonelykeyword")
}

func TestParse_MissingIncludeIsNoop(t *testing.T) {
	dir := t.TempDir()
	src := "Host a\nInclude nope/config\nHostName ignored\nHost b\nUser u\n"
	hosts, err := Parse(strings.NewReader(src), dir, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, names(hosts))
	for _, h := range hosts {
		assert.False(t, h.IsSeparator)
	}
	assert.Empty(t, hosts[0].HostName, "include flushes the open host")
	assert.Equal(t, "u", hosts[1].User)
}

func TestLoad_IncludeOrderAndLabels(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "work", "config"), "Host w1\n  HostName w1.example\nHost w2\n")
	writeFile(t, filepath.Join(root, "home", "config"), "Host h1\n")
	writeFile(t, filepath.Join(root, "config"),
		"Host top\n  User me\nInclude work/config\nInclude "+filepath.Join(root, "home", "config")+"\nHost tail\n")

	reg, err := Load(root)
	require.NoError(t, err)

	hosts := reg.Hosts()
	assert.Equal(t, []string{"top", "── work ──", "w1", "w2", "── home ──", "h1", "tail"}, names(hosts))

	assert.Empty(t, hosts[0].Source)
	assert.True(t, hosts[1].IsSeparator)
	assert.Equal(t, "work", hosts[1].Source)
	assert.Empty(t, hosts[1].HostName)
	assert.Zero(t, hosts[1].Port)
	assert.Equal(t, "work", hosts[2].Source)
	assert.Equal(t, filepath.Join(root, "work", "config"), hosts[2].SourcePath)
	assert.Equal(t, "home", hosts[5].Source)
	assert.Empty(t, hosts[6].Source)
	assert.Equal(t, filepath.Join(root, "config"), hosts[6].SourcePath)
}

func TestLoad_NestedIncludeRelativeToIncludedFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "config"), "Host in-a\nInclude ../b/config\n")
	writeFile(t, filepath.Join(root, "b", "config"), "Host in-b\n")
	writeFile(t, filepath.Join(root, "config"), "Include a/config\n")

	reg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"── a ──", "in-a", "── b ──", "in-b"}, names(reg.Hosts()))
	h, ok := reg.Find("in-b")
	require.True(t, ok)
	assert.Equal(t, "b", h.Source)
}

func TestLoad_TildeInclude(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, "team", "config"), "Host teammate\n")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "config"), "Include ~/team/config\n")

	reg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"── team ──", "teammate"}, names(reg.Hosts()))
}

func TestLoad_IncludeCycleIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "config"), "Host a1\nInclude ../b/config\n")
	writeFile(t, filepath.Join(root, "b", "config"), "Host b1\nInclude ../a/config\n")
	writeFile(t, filepath.Join(root, "config"), "Include a/config\nInclude config\n")

	reg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"── a ──", "a1", "── b ──", "b1"}, names(reg.Hosts()))
}

func TestLoad_SameFileIncludedTwice(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shared", "config"), "Host s\n")
	writeFile(t, filepath.Join(root, "config"), "Include shared/config\nInclude shared/config\n")

	reg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"── shared ──", "s", "── shared ──", "s"}, names(reg.Hosts()))
}

func TestLoad_MissingRootIsError(t *testing.T) {
	root := t.TempDir()
	_, err := Load(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "load ssh config: "), msg)
	assert.Equal(t, 1, strings.Count(msg, filepath.Join(root, "config")), "path appears once: %s", msg)
}

func TestResolveInclude(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cases := []struct {
		arg, base, want string
	}{
		{"~/x/config", "/base", filepath.Join(home, "x", "config")},
		{"/etc/ssh/extra", "/base", "/etc/ssh/extra"},
		{"work/config", "/base", "/base/work/config"},
		{"~user/config", "/base", "/base/~user/config"},
		{"conf.d/*.conf", "/base", "/base/conf.d/*.conf"},
	}
	for _, tc := range cases {
		got, err := ResolveInclude(tc.arg, tc.base)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.arg)
	}
}

func TestRegistry_FirstSelectable(t *testing.T) {
	assert.Equal(t, 0, NewRegistry("", nil).FirstSelectable())
	assert.Equal(t, 0, NewRegistry("", []Host{newSeparator("a", "")}).FirstSelectable())

	reg := NewRegistry("", []Host{newSeparator("a", ""), newSeparator("b", ""), {Name: "x"}})
	assert.Equal(t, 2, reg.FirstSelectable())

	h, ok := reg.At(2)
	require.True(t, ok)
	assert.Equal(t, "x", h.Name)
	_, ok = reg.At(3)
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, reg.Folders())
}

func TestRegistry_LookupSkipsSeparators(t *testing.T) {
	sep := newSeparator("work", "/x/work/config")
	reg := NewRegistry("", []Host{sep, {Name: "a", Source: "work"}, {Name: "a", Source: ""}})

	h, err := reg.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "work", h.Source, "first definition wins")
	assert.Equal(t, 1, reg.Index("a"))

	_, err = reg.Lookup(sep.Name)
	assert.ErrorIs(t, err, ErrHostNotFound)
	assert.Equal(t, -1, reg.Index("missing"))
}
