package fileserver

import (
	"bytes"
	"encoding/json"
	"io"
	"unicode/utf8"
)

const (
	wrapChunkSize = 32 * 1024
	filePrefix    = `{"type":"file","value":"`
	fileSuffix    = `"}`
)

// wrapFileDescriptor streams r as a single {"type":"file","value":...} JSON
// document without buffering the whole file. The returned reader must be
// closed; closing it early stops the copy and closes r.
func wrapFileDescriptor(r io.ReadCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		defer func() { _ = r.Close() }()
		pw.CloseWithError(writeFileDescriptor(pw, r))
	}()
	return pr
}

// writeFileDescriptor escapes r chunk by chunk. Chunks are cut on rune
// boundaries so that a multi-byte character split across reads is escaped
// as one unit. Invalid UTF-8 is replaced with U+FFFD.
func writeFileDescriptor(w io.Writer, r io.Reader) error {
	if _, err := io.WriteString(w, filePrefix); err != nil {
		return err
	}

	var (
		buf     = make([]byte, wrapChunkSize)
		pending []byte
		escaped bytes.Buffer
	)
	enc := json.NewEncoder(&escaped)
	enc.SetEscapeHTML(false)

	flush := func(chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		escaped.Reset()
		if err := enc.Encode(string(chunk)); err != nil {
			return err
		}
		// Encode writes a quoted string followed by a newline.
		out := escaped.Bytes()
		_, err := w.Write(out[1 : len(out)-2])
		return err
	}

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completeRunes(pending)
			if err := flush(pending[:cut]); err != nil {
				return err
			}
			pending = append(pending[:0], pending[cut:]...)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if err := flush(pending); err != nil {
		return err
	}
	_, err := io.WriteString(w, fileSuffix)
	return err
}

// completeRunes returns the length of the longest prefix of b that does not
// end inside an incomplete UTF-8 sequence.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
