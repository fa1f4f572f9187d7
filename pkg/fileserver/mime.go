package fileserver

import (
	"bufio"
	"io"
	"mime"
	"path"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a public asset is inspected when its extension
// is unknown.
const sniffLen = 3072

type bufferedReadCloser struct {
	*bufio.Reader
	io.Closer
}

// assetType infers the MIME type of a public asset from its name, falling
// back to content sniffing. The returned reader replaces rc.
func assetType(name string, rc io.ReadCloser) (string, io.ReadCloser) {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t, rc
	}

	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)
	return mimetype.Detect(head).String(), bufferedReadCloser{Reader: br, Closer: rc}
}
