package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"sshdeck/pkg/manager"
	"sshdeck/pkg/sshconfig"
)

type cliEnv struct {
	root     string
	settings string
}

func setupCLI(t *testing.T, extraSettings string) cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("NO_COLOR", "1")
	t.Setenv(manager.EnvLogLevel, "")

	root := filepath.Join(t.TempDir(), "ssh")
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o700))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	write("config", "Include work/config\n\nHost r1\n    Hostname r1.example\n    User me\n")
	write("work/config", "Host w1\n    Hostname w1.example\n    User me\n\nHost w2\n    Hostname w2.example\n    User me\n    Port 2222\n")

	settings := filepath.Join(t.TempDir(), "sshdeck", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(settings), 0o700))
	content := fmt.Sprintf("workdir = %q\nbackup = false\n%s", root, extraSettings)
	require.NoError(t, os.WriteFile(settings, []byte(content), 0o600))
	t.Setenv("SSHDECK_CONFIG", settings)

	return cliEnv{root: root, settings: settings}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.isTTY = func() bool { return false }

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func hostNames(hosts []sshconfig.Host) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.Name)
	}
	return out
}

func TestList_Table(t *testing.T) {
	setupCLI(t, "")

	out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "HOSTNAME")
	for _, want := range []string{"w1", "w2.example", "2222", "work", "r1"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "──", "separators are not listed")
	assert.Less(t, strings.Index(out, "w1"), strings.Index(out, "r1"))
}

func TestRoot_NonTTYFallsBackToList(t *testing.T) {
	setupCLI(t, "")

	out, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "w2.example")
}

func TestList_JSON(t *testing.T) {
	setupCLI(t, "")

	out, err := runCLI(t, "list", "-o", "json")
	require.NoError(t, err)

	var hosts []sshconfig.Host
	require.NoError(t, json.Unmarshal([]byte(out), &hosts))
	assert.Equal(t, []string{"w1", "w2", "r1"}, hostNames(hosts))
	assert.Equal(t, uint16(2222), hosts[1].Port)
	assert.Equal(t, "work", hosts[0].Source)
}

func TestList_YAMLWithFolderFilter(t *testing.T) {
	setupCLI(t, "")

	out, err := runCLI(t, "list", "-o", "yaml", "--folder", "work")
	require.NoError(t, err)

	var hosts []sshconfig.Host
	require.NoError(t, yaml.Unmarshal([]byte(out), &hosts))
	assert.Equal(t, []string{"w1", "w2"}, hostNames(hosts))
}

func TestList_UnknownFormat(t *testing.T) {
	setupCLI(t, "")

	_, err := runCLI(t, "list", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestList_MissingRootConfig(t *testing.T) {
	env := setupCLI(t, "")
	require.NoError(t, os.Remove(filepath.Join(env.root, "config")))

	_, err := runCLI(t, "list")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShow(t *testing.T) {
	env := setupCLI(t, "")

	out, err := runCLI(t, "show", "w2")
	require.NoError(t, err)
	assert.Contains(t, out, "Hostname      w2.example")
	assert.Contains(t, out, "Port          2222")
	assert.Contains(t, out, filepath.Join(env.root, "work", "config")+":5")

	_, err = runCLI(t, "show", "nope")
	assert.ErrorIs(t, err, sshconfig.ErrHostNotFound)
}

func TestAdd_NewFolderRegistersInclude(t *testing.T) {
	env := setupCLI(t, "")

	out, err := runCLI(t, "add", "--folder", "lab", "--host", "lab1", "--hostname", "10.0.0.9", "--user", "root", "--local-forward", "8080 localhost:80")
	require.NoError(t, err)
	assert.Contains(t, out, "Added lab1")
	assert.Contains(t, out, "Registered")

	data, err := os.ReadFile(filepath.Join(env.root, "lab", "config"))
	require.NoError(t, err)
	assert.Equal(t, "Host lab1\n    Hostname 10.0.0.9\n    User root\n    LocalForward 8080 localhost:80\n", string(data))

	rootData, err := os.ReadFile(filepath.Join(env.root, "config"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(rootData), "Include "+filepath.Join(env.root, "lab", "config")+"\n\n"))

	out, err = runCLI(t, "list", "-o", "json")
	require.NoError(t, err)
	var hosts []sshconfig.Host
	require.NoError(t, json.Unmarshal([]byte(out), &hosts))
	assert.Equal(t, []string{"lab1", "w1", "w2", "r1"}, hostNames(hosts))
}

func TestAdd_ValidationError(t *testing.T) {
	env := setupCLI(t, "")

	_, err := runCLI(t, "add", "--folder", "lab", "--host", "lab1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostname is required")

	_, statErr := os.Stat(filepath.Join(env.root, "lab"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEdit_KeepsUnsetFields(t *testing.T) {
	env := setupCLI(t, "")

	_, err := runCLI(t, "edit", "w1", "--port", "2200")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.root, "work", "config"))
	require.NoError(t, err)
	assert.Equal(t,
		"Host w2\n    Hostname w2.example\n    User me\n    Port 2222\n\nHost w1\n    Hostname w1.example\n    User me\n    Port 2200\n",
		string(data))
}

func TestEdit_RenameUpdatesRecents(t *testing.T) {
	env := setupCLI(t, "")
	statePath := manager.StatePathFor(env.settings)
	require.NoError(t, manager.SaveState(statePath, &manager.State{Version: 1, Recents: []string{"w1"}}))

	_, err := runCLI(t, "edit", "w1", "--host", "w1-old")
	require.NoError(t, err)

	st, err := manager.LoadState(statePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1-old"}, st.Recents)

	_, err = runCLI(t, "show", "w1")
	assert.ErrorIs(t, err, sshconfig.ErrHostNotFound)
}

func TestRemove(t *testing.T) {
	env := setupCLI(t, "")

	out, err := runCLI(t, "rm", "r1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed r1")

	data, err := os.ReadFile(filepath.Join(env.root, "config"))
	require.NoError(t, err)
	assert.Equal(t, "Include work/config\n", string(data))

	_, err = runCLI(t, "rm", "r1")
	assert.ErrorIs(t, err, sshconfig.ErrHostNotFound)
}

func TestProbe(t *testing.T) {
	setupCLI(t, "probe_timeout = \"1s\"\n")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	_, err = runCLI(t, "add", "--host", "local", "--hostname", "127.0.0.1", "--user", "me", "--port", fmt.Sprint(port))
	require.NoError(t, err)

	out, err := runCLI(t, "probe", "local")
	require.NoError(t, err)
	assert.Contains(t, out, "answered on port")

	require.NoError(t, ln.Close())
	_, err = runCLI(t, "probe", "local")
	assert.ErrorContains(t, err, "did not answer")
}

func TestConnect_UsesConfiguredBinaryAndRecordsRecent(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := filepath.Join(t.TempDir(), "fake-ssh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho \"$@\" > "+argsFile+"\n"), 0o755))

	env := setupCLI(t, fmt.Sprintf("ssh_binary = %q\n", bin))

	_, err := runCLI(t, "connect", "w2")
	require.NoError(t, err)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "-F "+filepath.Join(env.root, "config")+" w2\n", string(args))

	st, err := manager.LoadState(manager.StatePathFor(env.settings))
	require.NoError(t, err)
	assert.Equal(t, []string{"w2"}, st.Recents)
}

func TestConnect_FailureIsReported(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "fake-ssh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 255\n"), 0o755))
	env := setupCLI(t, fmt.Sprintf("ssh_binary = %q\n", bin))

	_, err := runCLI(t, "connect", "w1")
	assert.EqualError(t, err, "ssh exited with code 255")

	st, err := manager.LoadState(manager.StatePathFor(env.settings))
	require.NoError(t, err)
	assert.Empty(t, st.Recents)
}

func TestSettings_PrintsEffectiveValues(t *testing.T) {
	env := setupCLI(t, "")

	out, err := runCLI(t, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+env.settings)
	assert.Contains(t, out, fmt.Sprintf("workdir = %q", env.root))

	other := t.TempDir()
	out, err = runCLI(t, "settings", "--workdir", other)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("workdir = %q", other))
}

func TestIsDefaultWorkdir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.True(t, isDefaultWorkdir(filepath.Join(home, ".ssh")))
	assert.True(t, isDefaultWorkdir(filepath.Join(home, ".ssh")+"/"))
	assert.False(t, isDefaultWorkdir(filepath.Join(home, "other")))
}
