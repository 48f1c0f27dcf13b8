package fileutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{-5, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1100, "1.07 KB"},
		{1 << 20, "1 MB"},
		{5*(1<<20) + (1 << 19), "5.5 MB"},
		{1 << 30, "1 GB"},
		{3 << 40, "3072 GB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatFileSize(tc.in), "bytes=%d", tc.in)
	}
}

func TestDataURL_RoundTrip(t *testing.T) {
	url := EncodeDataURL("image/png", []byte("png-bytes"))
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", url)

	mt, b, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Equal(t, []byte("png-bytes"), b)
}

func TestDecodeDataURL_Rejects(t *testing.T) {
	for _, in := range []string{"https://x/y.png", "data:text/plain,hello", "data:image/png;base64"} {
		_, _, err := DecodeDataURL(in)
		assert.ErrorIs(t, err, ErrNotDataURL, in)
	}
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectType("x.jpg", "image/jpeg; charset=binary", nil))
	assert.Equal(t, MimeDocx, DetectType("informe.docx", "", nil))
	assert.Equal(t, MimePDF, DetectType("rx.PDF", "application/octet-stream", nil))
	assert.Equal(t, "image/png", DetectType("noext", "", []byte("\x89PNG\r\n\x1a\n0000")))
}

func TestAcceptsAndClassify(t *testing.T) {
	assert.True(t, Accepts("image/png", "x.png"))
	assert.True(t, Accepts(MimePDF, "x.pdf"))
	assert.True(t, Accepts("application/octet-stream", "notes.doc"))
	assert.False(t, Accepts("text/plain", "notes.txt"))

	assert.Equal(t, KindImage, Classify("image/gif"))
	assert.Equal(t, KindPDF, Classify(MimePDF))
	assert.Equal(t, KindOther, Classify(MimeDocx))
}
