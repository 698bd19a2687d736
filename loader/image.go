// Package loader provides program image loading for P8 instruction memory.
//
// Two formats are understood. A .hex file holds one 16-bit word per line in
// hexadecimal, with an optional 0x prefix. Blank lines and text after '#' or
// ';' are ignored, and a line of the form "@addr" moves the load address.
// Any other file is read as raw little-endian words.
package loader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarchlab/p8sim/timing/cache"
)

// ImageSize is the number of words in a full instruction memory image.
var ImageSize = cache.DefaultInstructionConfig().Size

// ErrSyntax is returned for a malformed .hex line.
var ErrSyntax = errors.New("invalid hex image syntax")

// Format identifies a program file format.
type Format int

const (
	// FormatBinary is raw little-endian 16-bit words.
	FormatBinary Format = iota
	// FormatHex is one hexadecimal word per line.
	FormatHex
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".txt":
		return FormatHex
	default:
		return FormatBinary
	}
}

// Program represents a loaded program ready for flashing.
type Program struct {
	// Words is the full memory image, padded with zero words (NOP).
	Words []uint16
	// Length is the number of words the file defined, including gaps.
	Length int
}

// Flash writes the program into instruction memory.
func (p *Program) Flash(im *cache.InstructionMemory) error {
	return im.Flash(p.Words)
}

// Load reads a program file and pads it to a full image.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, FormatFor(path))
}

// Read parses a program in the given format and pads it to a full image.
func Read(r io.Reader, format Format) (*Program, error) {
	var (
		words []uint16
		err   error
	)

	switch format {
	case FormatHex:
		words, err = ParseHex(r)
	default:
		var data []byte
		data, err = io.ReadAll(r)
		if err == nil {
			words, err = ParseBinary(data)
		}
	}

	if err != nil {
		return nil, err
	}

	image, err := Pad(words, ImageSize)
	if err != nil {
		return nil, err
	}

	return &Program{Words: image, Length: len(words)}, nil
}

// ParseBinary decodes raw little-endian words.
func ParseBinary(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("binary image has odd length %d", len(data))
	}

	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(data[2*i:])
	}

	return words, nil
}

// ParseHex decodes a .hex text image.
func ParseHex(r io.Reader) ([]uint16, error) {
	var (
		words []uint16
		addr  int
		line  int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++

		text := stripComment(scanner.Text())
		if text == "" {
			continue
		}

		if rest, ok := strings.CutPrefix(text, "@"); ok {
			v, err := parseHexValue(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad address %q: %w", line, rest, ErrSyntax)
			}
			addr = int(v)
			continue
		}

		v, err := parseHexValue(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad word %q: %w", line, text, ErrSyntax)
		}

		for len(words) <= addr {
			words = append(words, 0)
		}
		words[addr] = v
		addr++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex image: %w", err)
	}

	return words, nil
}

func stripComment(s string) string {
	if i := strings.IndexAny(s, "#;"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func parseHexValue(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	return uint16(v), err
}

// Pad extends words with zeros to size. A longer image is rejected.
func Pad(words []uint16, size int) ([]uint16, error) {
	if len(words) > size {
		return nil, &cache.SizeMismatchError{Got: len(words), Want: size}
	}

	image := make([]uint16, size)
	copy(image, words)

	return image, nil
}

// WriteHex writes words as a .hex text image.
func WriteHex(w io.Writer, words []uint16) error {
	bw := bufio.NewWriter(w)
	for _, v := range words {
		if _, err := fmt.Fprintf(bw, "%04X\n", v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBinary writes words as raw little-endian bytes.
func WriteBinary(w io.Writer, words []uint16) error {
	buf := make([]byte, 2*len(words))
	for i, v := range words {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	_, err := w.Write(buf)
	return err
}
