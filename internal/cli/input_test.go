package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophsignin/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sprintln(a ...any) string { return fmt.Sprintln(a...) }

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(in, "Name?", &out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()

	readPassword = func(int) ([]byte, error) { return []byte("Passw0rd"), nil }
	var out bytes.Buffer
	pw, err := GetPassword("Password", &out)
	require.NoError(t, err)
	assert.Equal(t, "Passw0rd", string(pw))
	assert.Equal(t, "Password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword("Password", &out)
	assert.Error(t, err)
}

func TestIsYes(t *testing.T) {
	for _, s := range []string{"y", "Y", "yes", " YES "} {
		assert.True(t, IsYes(s), s)
	}
	for _, s := range []string{"", "n", "no", "yep", "1"} {
		assert.False(t, IsYes(s), s)
	}
}

func TestLineReader_OneLinePerRead(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("first\nsecond\nthird"))
	sc := bufio.NewScanner(lineReader{r})

	require.True(t, sc.Scan())
	assert.Equal(t, "first", sc.Text())

	// the rest of the input is still available to other readers
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "second\n", line)

	require.True(t, sc.Scan())
	assert.Equal(t, "third", sc.Text())
	assert.False(t, sc.Scan())
}

func TestTerminalGate(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		err     error
		wantErr error
	}{
		{"yes", "y", nil, nil},
		{"no", "n", nil, vault.ErrPromptCancelled},
		{"empty", "", nil, vault.ErrPromptCancelled},
		{"eof", "", io.EOF, vault.ErrPromptCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var asked string
			g := &terminalGate{ask: func(p string) (string, error) {
				asked = p
				return tt.answer, tt.err
			}}

			err := g.Authenticate(context.Background(), vault.DefaultPrompt)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, asked, vault.DefaultPrompt.Title)
			assert.Equal(t, vault.BiometryPasscode, g.Kind())
		})
	}
}
