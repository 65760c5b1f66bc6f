package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadURLs(t *testing.T) {
	urls, err := readURLs(strings.NewReader("\ufeffurl,name\nhttps://shop.test/p/1,Milk\n,Blank\nhttps://shop.test/p/2\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"https://shop.test/p/1", "https://shop.test/p/2"}, urls)

	urls, err = readURLs(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, urls)

	_, err = readURLs(strings.NewReader("name\nMilk\n"))
	require.Error(t, err)
}
