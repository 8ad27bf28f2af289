package processing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "", NormalizeText(""))
	require.Equal(t, "a b c", NormalizeText("  a\n\nb\tc  "))
	require.Equal(t, "Q&A with the CEO", NormalizeText("Q&amp;A   with the CEO"))
}

func TestBuildDocumentIDDeterministic(t *testing.T) {
	a := BuildDocumentID("Title", "https://news.test/1")
	b := BuildDocumentID("Title", "https://news.test/1")
	require.Equal(t, a, b)
	require.Len(t, a, 40)
}

func TestBuildDocumentIDDistinguishesInputs(t *testing.T) {
	require.NotEqual(t,
		BuildDocumentID("Title", "https://news.test/1"),
		BuildDocumentID("Title", "https://news.test/2"),
	)
	require.NotEqual(t,
		BuildDocumentID("Title A", "https://news.test/1"),
		BuildDocumentID("Title B", "https://news.test/1"),
	)
}

func TestBuildDocumentIDEmptyInputs(t *testing.T) {
	require.Equal(t, "", BuildDocumentID("", ""))
	require.Equal(t, "", BuildDocumentID("  ", "\t"))
	require.NotEqual(t, "", BuildDocumentID("Title", ""))
}
