// Contains everything related to served file names: validation of what the
// client sent, and synthesis of the name the paste is stored under.

package paste

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"text/scanner"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/zeybek/gopaste/internal/config"
)

// alwaysRejectedRunes are not safe to use with network shares.
// If a file name contains any, it will be rejected.
const alwaysRejectedRunes = `"*:<>?|\` + "/"

// Collection of runes from unicode.PrintRanges not suitable for filenames.
var excludedRunes = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2028, Hi: 0x202f, Stride: 1}, // new line, paragraph etc.
		{Lo: 0xfff0, Hi: 0xffff, Stride: 1}, // specials, and invalid
	},
	LatinOffset: 0,
}

// IsAcceptableFilename is true for strings exclusively in the given alphabet
// and form. Runes representing whitespace – other than U+0020 (space) – as
// well as any non-printable will always be rejected.
func IsAcceptableFilename(s string, alphabet []*unicode.RangeTable, enforceForm *norm.Form) bool {
	if enforceForm != nil && !enforceForm.IsNormalString(s) {
		return false
	}

	if alphabet != nil {
		for _, r := range s {
			if !unicode.In(r, alphabet...) {
				return false
			}
		}
	}

	for _, r := range s {
		if uint32(r) <= unicode.MaxLatin1 && strings.ContainsRune(alwaysRejectedRunes, r) {
			return false
		}
		if r == ' ' {
			continue
		}
		if unicode.Is(excludedRunes, r) ||
			!unicode.IsPrint(r) { // this takes care of the "spaces" as well
			return false
		}
	}

	return true
}

type rangeTupleSlice [][3]uint64

func (a rangeTupleSlice) Len() int      { return len(a) }
func (a rangeTupleSlice) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a rangeTupleSlice) Less(i, j int) bool {
	for n := range a[i] {
		if a[i][n] < a[j][n] {
			return true
		}
		if a[i][n] > a[j][n] {
			return false
		}
	}
	return false
}

// ParseUnicodeBlockList naïvely translates a string with space-delimited
// Unicode ranges to Go's unicode.RangeTable.
//
// All elements must fit into uint32.
// A Range must begin with its lower bound, and ranges must not overlap.
//
// The format of one range is as follows, with 'stride' being set to '1' if
// left empty.
//
//	<low>-<high>[:<stride>]
func ParseUnicodeBlockList(str string) (*unicode.RangeTable, error) {
	haveRanges := make(rangeTupleSlice, 0, strings.Count(str, " "))

	// read
	var s scanner.Scanner
	s.Init(strings.NewReader(str))
	tok := s.Scan()
	for tok != scanner.EOF {
		var (
			low, high, stride uint64
			err               error
		)

		if tok != scanner.Ident {
			return nil, ErrInvalidFilename
		}
		if low, err = strconv.ParseUint(strings.TrimLeft(s.TokenText(), "uU+x"), 16, 32); err != nil {
			return nil, ErrInvalidFilename
		}

		tok = s.Scan()
		if !(tok == '-' || tok == '–') {
			return nil, ErrInvalidFilename
		}

		tok = s.Scan()
		if tok != scanner.Ident {
			return nil, ErrInvalidFilename
		}
		if high, err = strconv.ParseUint(strings.TrimLeft(s.TokenText(), "uU+x"), 16, 32); err != nil {
			return nil, ErrInvalidFilename
		}

		tok = s.Scan()
		if tok != ':' {
			haveRanges = append(haveRanges, [3]uint64{low, high, 1})
			continue
		}

		tok = s.Scan()
		if tok != scanner.Int {
			return nil, ErrInvalidFilename
		}
		if stride, err = strconv.ParseUint(s.TokenText(), 10, 32); err != nil {
			return nil, ErrInvalidFilename
		}

		haveRanges = append(haveRanges, [3]uint64{low, high, stride})

		tok = s.Scan()
	}

	sort.Sort(haveRanges)

	// fold
	rt := unicode.RangeTable{}
	for i := range haveRanges {
		switch {
		case haveRanges[i][1] <= unicode.MaxLatin1:
			rt.LatinOffset++
			fallthrough
		case haveRanges[i][1] <= math.MaxUint16:
			rt.R16 = append(rt.R16, unicode.Range16{
				Lo:     uint16(haveRanges[i][0]),
				Hi:     uint16(haveRanges[i][1]),
				Stride: uint16(haveRanges[i][2]),
			})
		case haveRanges[i][1] <= math.MaxUint32:
			rt.R32 = append(rt.R32, unicode.Range32{
				Lo:     uint32(haveRanges[i][0]),
				Hi:     uint32(haveRanges[i][1]),
				Stride: uint32(haveRanges[i][2]),
			})
		default:
			return nil, ErrInvalidFilename
		}
	}

	return &rt, nil
}

// SynthesizeName derives the served file name for an upload.
//
// "-" becomes "stdin", names without a usable basename become "file".
// A leading dot marks a dotfile whose stem keeps the dot. A missing
// extension is derived by sniffing data, falling back to the configured
// default. If random names are configured they replace the stem, or – in
// suffix mode – are woven in before the extension so the original name
// survives as a prefix. The configured space handling runs last.
func SynthesizeName(fileName string, data []byte, cfg *config.Config) (string, error) {
	name := baseName(fileName)

	var alphabet []*unicode.RangeTable
	if cfg.Paste.FilenameAlphabet != "" {
		table, err := ParseUnicodeBlockList(cfg.Paste.FilenameAlphabet)
		if err != nil {
			return "", err
		}
		alphabet = []*unicode.RangeTable{table}
	}
	form, err := normForm(cfg.Paste.FilenameForm)
	if err != nil {
		return "", err
	}
	if !IsAcceptableFilename(name, alphabet, form) {
		return "", ErrInvalidFilename
	}

	stem, extension := splitName(name)
	if extension == "" {
		extension = deriveExtension(data, cfg.Paste.DefaultExtension)
	}

	if random := cfg.Paste.RandomURL.Generate(); random != "" {
		if cfg.Paste.RandomURL.UseSuffixMode() {
			// keep the original stem; "foo.tar.gz" → "foo.<random>.tar.gz"
			if extension != "" {
				extension = random + "." + extension
			} else {
				extension = random
			}
		} else {
			stem = random
		}
	}

	result := stem
	if extension != "" {
		result += "." + extension
	}
	return cfg.Server.HandleSpaces.Process(result), nil
}

func baseName(fileName string) string {
	if fileName == "-" {
		return "stdin"
	}
	name := fileName
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	switch name {
	case "", ".", "..":
		return "file"
	}
	return name
}

// splitName separates stem and extension, keeping the leading dot of
// dotfiles with the stem: ".foo.tar.gz" → (".foo", "tar.gz").
func splitName(name string) (string, string) {
	segments := strings.Split(name, ".")
	if segments[0] == "" {
		stem := "." + segments[1]
		if len(segments) > 2 {
			return stem, strings.Join(segments[2:], ".")
		}
		return stem, ""
	}
	if len(segments) > 1 {
		return segments[0], strings.Join(segments[1:], ".")
	}
	return segments[0], ""
}

// normForm maps the configured normalization form name to its table.
// An empty name disables the check.
func normForm(name string) (*norm.Form, error) {
	var form norm.Form
	switch strings.ToUpper(name) {
	case "":
		return nil, nil
	case "NFC":
		form = norm.NFC
	case "NFD":
		form = norm.NFD
	case "NFKC":
		form = norm.NFKC
	case "NFKD":
		form = norm.NFKD
	default:
		return nil, errors.Wrap(ErrInvalidFilename, "unknown normalization form "+name)
	}
	return &form, nil
}

func deriveExtension(data []byte, fallback string) string {
	sniffed := strings.TrimPrefix(mimetype.Detect(data).Extension(), ".")
	if sniffed != "" {
		return sniffed
	}
	return fallback
}
