package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("*")
	req.NoError(err)
	req.Equal('*', r)

	r, err = CharacterRune("é")
	req.NoError(err)
	req.Equal('é', r)

	_, err = CharacterRune("")
	req.Error(err)

	_, err = CharacterRune("**")
	req.Error(err)
}

func TestCensoredWordList(t *testing.T) {
	req := require.New(t)

	config := Config{CensoredWords: "foo, bar ,,  baz"}
	req.Equal([]string{"foo", "bar", "baz"}, config.CensoredWordList())

	req.Empty(Config{}.CensoredWordList())
}
