package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("  hello world  \n"))

	got, err := GetSimpleText(r, "Say something", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Contains(t, out.String(), "Say something")
}

func TestGetSimpleText_EOFWithPartialLine(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("no newline"))

	got, err := GetSimpleText(r, "p", &out)
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)
}

func TestGetFields(t *testing.T) {
	var out bytes.Buffer
	input := strings.Join([]string{
		"host=ftp.example.com",
		"port=2121",
		"explicit_tls=true",
		"garbage line",
		"prefix = pub/show ",
		"",
	}, "\n")
	r := bufio.NewReader(strings.NewReader(input))

	fields, err := GetFields(r, &out)
	require.NoError(t, err)

	assert.Equal(t, "ftp.example.com", fields["host"])
	assert.Equal(t, 2121, fields["port"])
	assert.Equal(t, true, fields["explicit_tls"])
	assert.Equal(t, "pub/show", fields["prefix"])
	assert.NotContains(t, fields, "garbage line")
	assert.Contains(t, out.String(), "ignored")
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	t.Cleanup(func() { readPassword = orig })

	var out bytes.Buffer
	pw, err := GetPassword("Password", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Contains(t, out.String(), "Password")
}
