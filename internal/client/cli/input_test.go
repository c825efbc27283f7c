package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// stubTerminal makes GetSecret believe stdin is a terminal that yields pw.
func stubTerminal(t *testing.T, pw []byte, err error) {
	t.Helper()
	oldRead, oldIsTerm := readPassword, isTerminal
	readPassword = func(int) ([]byte, error) { return pw, err }
	isTerminal = func(int) bool { return true }
	t.Cleanup(func() {
		readPassword, isTerminal = oldRead, oldIsTerm
	})
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	assert.Error(t, err)
}

func TestGetSecret_Terminal(t *testing.T) {
	buf := []byte("  eyJ.token.sig \n")
	stubTerminal(t, buf, nil)

	var out bytes.Buffer
	got, err := GetSecret(rdr("ignored\n"), "Paste ID token", &out)
	require.NoError(t, err)
	assert.Equal(t, "eyJ.token.sig", got)
	assert.Equal(t, make([]byte, len(buf)), buf, "buffer is wiped")
	assert.NotContains(t, out.String(), "eyJ")
}

func TestGetSecret_Error(t *testing.T) {
	stubTerminal(t, nil, errors.New("boom"))

	var out bytes.Buffer
	_, err := GetSecret(rdr(""), "Paste ID token", &out)
	assert.Error(t, err)
}

func TestGetSecret_PipedInput(t *testing.T) {
	old := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = old })

	var out bytes.Buffer
	got, err := GetSecret(rdr("piped-token\n"), "Paste ID token", &out)
	require.NoError(t, err)
	assert.Equal(t, "piped-token", got)
}
