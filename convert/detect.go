package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// number of bytes looked at when detecting file type
const headSize = 8192

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUnknown:
		return "unknown"
	case encUTF8:
		return "utf8"
	case encUTF16BigEndian:
		return "utf16be"
	case encUTF16LittleEndian:
		return "utf16le"
	case encUTF32BigEndian:
		return "utf32be"
	case encUTF32LittleEndian:
		return "utf32le"
	}
	return "invalid"
}

const sourceTypeExt = "epsrc"

func init() {
	filetype.AddMatcher(filetype.NewType(sourceTypeExt, "application/x-edgepress-source"), isSourceHead)
}

// byte order marks, UTF-32LE goes before UTF-16LE as their marks share
// prefix
var boms = []struct {
	mark []byte
	enc  srcEncoding
}{
	{[]byte{0xEF, 0xBB, 0xBF}, encUTF8},
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
	{[]byte{0xFE, 0xFF}, encUTF16BigEndian},
	{[]byte{0xFF, 0xFE}, encUTF16LittleEndian},
}

func detectUTF(buf []byte) srcEncoding {
	for _, b := range boms {
		if bytes.HasPrefix(buf, b.mark) {
			return b.enc
		}
	}
	return encUnknown
}

func decoderFor(enc srcEncoding) encoding.Encoding {
	switch enc {
	case encUTF8:
		return unicode.UTF8BOM
	case encUTF16BigEndian:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	case encUTF16LittleEndian:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case encUTF32BigEndian:
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM)
	case encUTF32LittleEndian:
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM)
	}
	return nil
}

// selectReader returns reader producing UTF-8 without byte order mark.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	if enc == encUnknown {
		return r
	}
	e := decoderFor(enc)
	if e == nil {
		panic(fmt.Sprintf("unexpected source encoding %d", int(enc)))
	}
	return e.NewDecoder().Reader(r)
}

// isSourceHead recognizes serialized block markup, block lists and
// canonical trees by the beginning of UTF-8 content.
func isSourceHead(buf []byte) bool {
	switch {
	case bytes.Contains(buf, []byte("<!-- wp:")):
		return true
	case bytes.Contains(buf, []byte(`"blockName"`)), bytes.Contains(buf, []byte(`"blockKind"`)):
		trimmed := bytes.TrimSpace(buf)
		return len(trimmed) > 0 && trimmed[0] == '['
	case bytes.Contains(buf, []byte("blockName:")):
		return true
	}
	return false
}

// htmlExt are always treated as sources, post content without any blocks is
// valid freeform document.
func htmlExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}

func readHead(r io.Reader) ([]byte, error) {
	buf := make([]byte, headSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:n], nil
}

// checkHead decides if content is a document we can process and which
// encoding it is in.
func checkHead(name string, head []byte) (bool, srcEncoding, error) {
	enc := detectUTF(head)
	if enc != encUnknown {
		decoded, err := io.ReadAll(selectReader(bytes.NewReader(head), enc))
		if err != nil && len(decoded) == 0 {
			return false, enc, nil
		}
		head = decoded
	}
	return htmlExt(name) || filetype.Is(head, sourceTypeExt), enc, nil
}

func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return false, err
	}
	if !filetype.Is(head, "zip") {
		return false, nil
	}
	// make sure central directory is readable as well
	r, err := zip.OpenReader(path)
	if err != nil {
		return false, nil
	}
	r.Close()
	return true, nil
}

func isSourceFile(path string) (bool, srcEncoding, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return false, encUnknown, err
	}
	return checkHead(path, head)
}

func isSourceInArchive(f *zip.File) (bool, srcEncoding, error) {
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	head, err := readHead(r)
	if err != nil {
		return false, encUnknown, err
	}
	return checkHead(f.Name, head)
}
