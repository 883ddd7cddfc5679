package cypher

import (
	"strings"

	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
)

// Scanner walks a raw multi-statement script and yields one executable
// statement at a time, in source order. Comments are stripped, string and
// list literals keep their content verbatim, and a semicolon only terminates
// a statement at the top level. The zero cost of re-creating a Scanner makes
// the sequence restartable.
//
// Usage mirrors bufio.Scanner:
//
//	sc := cypher.NewScanner(script)
//	for sc.Scan() {
//	    use(sc.Statement())
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	src  string
	pos  int
	stmt string
	err  error
	done bool
}

func NewScanner(src string) *Scanner {
	return &Scanner{src: src}
}

// Statement returns the statement produced by the last successful Scan,
// trimmed of surrounding whitespace.
func (s *Scanner) Statement() string { return s.stmt }

func (s *Scanner) Err() error { return s.err }

type scanMode int

const (
	modePlain scanMode = iota
	modeLineComment
	modeBlockComment
	modeString
)

// Scan advances to the next non-blank statement. It returns false at end of
// input or on error; callers must check Err afterwards.
func (s *Scanner) Scan() bool {
	for !s.done && s.err == nil {
		stmt, ok := s.next()
		if !ok {
			break
		}
		if stmt != "" {
			s.stmt = stmt
			return true
		}
	}
	s.stmt = ""
	return false
}

// next consumes input up to the next top-level semicolon (or end of input)
// and returns the stripped statement text. A blank result with ok=true means
// the segment held only whitespace/comments and should be skipped.
func (s *Scanner) next() (stmt string, ok bool) {
	if s.pos >= len(s.src) {
		s.done = true
		return "", false
	}

	var b strings.Builder
	mode := modePlain
	listDepth := 0
	var quoteCh byte
	escaped := false

	for s.pos < len(s.src) {
		c := s.src[s.pos]

		switch mode {
		case modeLineComment:
			if c == '\n' {
				b.WriteByte(c)
				mode = modePlain
			}
			s.pos++
			continue

		case modeBlockComment:
			if c == '*' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
				s.pos += 2
				mode = modePlain
				continue
			}
			s.pos++
			continue

		case modeString:
			b.WriteByte(c)
			s.pos++
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == quoteCh {
				mode = modePlain
			}
			continue
		}

		// modePlain (listDepth may be non-zero)
		switch c {
		case '/':
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '/' {
				mode = modeLineComment
				s.pos += 2
				continue
			}
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '*' {
				mode = modeBlockComment
				s.pos += 2
				continue
			}
		case '\'', '"':
			mode = modeString
			quoteCh = c
		case '[':
			listDepth++
		case ']':
			if listDepth > 0 {
				listDepth--
			}
		case ';':
			if listDepth == 0 {
				s.pos++
				return strings.TrimSpace(b.String()), true
			}
		}
		b.WriteByte(c)
		s.pos++
	}

	// End of input reached mid-statement.
	s.done = true
	switch {
	case mode == modeString:
		s.err = kgerr.New(kgerr.UnterminatedLiteral, "unterminated string literal at end of input")
		return "", false
	case mode == modeBlockComment:
		s.err = kgerr.New(kgerr.UnterminatedLiteral, "unterminated block comment at end of input")
		return "", false
	case listDepth > 0:
		s.err = kgerr.New(kgerr.UnterminatedLiteral, "unterminated list literal at end of input")
		return "", false
	}
	// Trailing semicolon is optional; the final statement still counts.
	return strings.TrimSpace(b.String()), true
}

// SplitStatements is the eager form of Scanner. The whole script is
// validated up front: any unterminated literal fails the call and no
// statements are returned, since boundaries past the fault are unreliable.
func SplitStatements(src string) ([]string, error) {
	var out []string
	sc := NewScanner(src)
	for sc.Scan() {
		out = append(out, sc.Statement())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
