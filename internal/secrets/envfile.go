package secrets

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies a line of the credentials file.
type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineEntry
	// LineRaw is anything the parser does not understand. It is kept as-is.
	LineRaw
)

// Line is one line of the credentials file. Text is the original line
// without its trailing newline and is what gets written back.
type Line struct {
	Kind  LineKind
	Text  string
	Name  string // LineEntry, or LineRaw when the name is valid but the value is not
	Value string // LineEntry only, unquoted
}

// Snapshot is the parsed content of the credentials file.
type Snapshot struct {
	lines []Line
	index map[string]int // name -> position of its last occurrence

	// reserved holds names that only appear on lines with unparsable values.
	// They cannot be read but are still taken.
	reserved map[string]struct{}
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Parse splits data into typed lines. It never fails: lines it cannot make
// sense of are kept as LineRaw.
func Parse(data []byte) *Snapshot {
	s := &Snapshot{index: make(map[string]int), reserved: make(map[string]struct{})}
	if len(data) == 0 {
		return s
	}

	data = bytes.TrimSuffix(data, []byte("\n"))
	for _, text := range strings.Split(string(data), "\n") {
		s.push(parseLine(text))
	}
	return s
}

func parseLine(text string) Line {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return Line{Kind: LineBlank, Text: text}
	case strings.HasPrefix(trimmed, "#"):
		return Line{Kind: LineComment, Text: text}
	}

	body := strings.TrimPrefix(trimmed, "export ")
	eq := strings.IndexByte(body, '=')
	if eq <= 0 {
		return Line{Kind: LineRaw, Text: text}
	}

	name := strings.TrimSpace(body[:eq])
	if !namePattern.MatchString(name) {
		return Line{Kind: LineRaw, Text: text}
	}

	value, ok := parseValue(strings.TrimSpace(body[eq+1:]))
	if !ok {
		return Line{Kind: LineRaw, Text: text, Name: name}
	}
	return Line{Kind: LineEntry, Text: text, Name: name, Value: value}
}

// parseValue strips quotes and trailing comments the way dotenv loaders do.
func parseValue(raw string) (string, bool) {
	if raw == "" {
		return "", true
	}

	switch raw[0] {
	case '"':
		end := strings.LastIndexByte(raw, '"')
		if end == 0 {
			return "", false
		}
		v, err := strconv.Unquote(raw[:end+1])
		if err != nil {
			return raw[1:end], true
		}
		return v, true
	case '\'':
		end := strings.LastIndexByte(raw, '\'')
		if end == 0 {
			return "", false
		}
		return raw[1:end], true
	}

	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw, true
}

func (s *Snapshot) push(l Line) {
	switch {
	case l.Kind == LineEntry:
		s.index[l.Name] = len(s.lines)
	case l.Kind == LineRaw && l.Name != "":
		s.reserved[l.Name] = struct{}{}
	}
	s.lines = append(s.lines, l)
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		lines:    make([]Line, len(s.lines)),
		index:    make(map[string]int, len(s.index)),
		reserved: make(map[string]struct{}, len(s.reserved)),
	}
	copy(c.lines, s.lines)
	for k, v := range s.index {
		c.index[k] = v
	}
	for k := range s.reserved {
		c.reserved[k] = struct{}{}
	}
	return c
}

// Lines returns a copy of the parsed lines.
func (s *Snapshot) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Has reports whether name is taken, including by a line whose value could
// not be parsed.
func (s *Snapshot) Has(name string) bool {
	if _, ok := s.index[name]; ok {
		return true
	}
	_, ok := s.reserved[name]
	return ok
}

// Get returns the value of name. When a name appears more than once the last
// definition wins, as with dotenv.
func (s *Snapshot) Get(name string) (string, error) {
	i, ok := s.index[name]
	if !ok {
		return "", ErrNotFound
	}
	return s.lines[i].Value, nil
}

// APIKey returns the reserved API key entry or "" when absent.
func (s *Snapshot) APIKey() string {
	v, _ := s.Get(APIKeyName)
	return v
}

// Websites returns the website entries in file order.
func (s *Snapshot) Websites() []Entry {
	var out []Entry
	seen := make(map[string]bool)
	for _, l := range s.lines {
		if l.Kind != LineEntry || !strings.HasPrefix(l.Name, WebsitePrefix) || seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		v, _ := s.Get(l.Name)
		out = append(out, Entry{Name: l.Name, Value: v})
	}
	return out
}

// Set replaces the last definition of name with NAME=value, or appends it
// when name is not defined. Lines with unparsable values are never replaced.
func (s *Snapshot) Set(name, value string) {
	i, ok := s.index[name]
	if !ok {
		s.Append(name, value)
		return
	}
	s.lines[i] = Line{
		Kind:  LineEntry,
		Text:  name + "=" + formatValue(value),
		Name:  name,
		Value: value,
	}
}

// Append adds NAME=value at the end. The caller checks for duplicates.
func (s *Snapshot) Append(name, value string) {
	s.push(Line{
		Kind:  LineEntry,
		Text:  name + "=" + formatValue(value),
		Name:  name,
		Value: value,
	})
}

func formatValue(v string) string {
	if v == "" || !strings.ContainsAny(v, " \t#\"'\\") {
		return v
	}
	return strconv.Quote(v)
}

// Bytes renders the snapshot. Existing lines are written back verbatim.
func (s *Snapshot) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range s.lines {
		buf.WriteString(l.Text)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
