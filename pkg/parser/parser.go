// Package parser implements the streaming [SPEAK]...[/SPEAK] marker
// extractor: a pure, clock-free state machine over arbitrary-length
// tokens of an LLM output stream.
package parser

import "strings"

const (
	openMarker  = "[SPEAK]"
	closeMarker = "[/SPEAK]"
)

// partial prefixes of each marker, longest first, used to detect a marker
// split across a token boundary.
var openPrefixes = []string{"[SPEAK", "[SPEA", "[SPE", "[SP", "[S", "["}
var closePrefixes = []string{"[/SPEAK", "[/SPEA", "[/SPE", "[/SP", "[/S", "[/", "["}

// Segment is a span of text extracted from the token stream, tagged with
// whether it should be spoken and its monotonic index within the
// response.
type Segment struct {
	Text        string
	ShouldSpeak bool
	Index       int
}

type parserState int

const (
	stateOutside parserState = iota
	stateInsideSpeak
)

// Parser is the streaming marker extractor. Zero value is ready to use.
type Parser struct {
	state         parserState
	buffer        strings.Builder
	currentIndex  int
	pendingMarker string
}

// New returns a fresh Parser.
func New() *Parser {
	return &Parser{}
}

// Reset returns the parser to its initial state.
func (p *Parser) Reset() {
	p.state = stateOutside
	p.buffer.Reset()
	p.currentIndex = 0
	p.pendingMarker = ""
}

// CurrentIndex returns the next segment index to be assigned.
func (p *Parser) CurrentIndex() int { return p.currentIndex }

// IsInsideSpeak reports whether the parser is currently inside a
// [SPEAK] block.
func (p *Parser) IsInsideSpeak() bool { return p.state == stateInsideSpeak }

// Feed supplies the next token of the stream and returns zero or more
// complete segments extracted as a result. A single token may complete
// more than one marker.
func (p *Parser) Feed(token string) []Segment {
	var segments []Segment

	combined := p.pendingMarker + token
	p.pendingMarker = ""

	runes := []rune(combined)
	i := 0
	current := strings.Builder{}

	for i < len(runes) {
		c := runes[i]
		current.WriteRune(c)
		i++

		if c == '[' {
			remaining := string(runes[i:])

			switch {
			case strings.HasPrefix(remaining, "SPEAK]"):
				prefix := current.String()
				prefix = prefix[:len(prefix)-1]
				if prefix != "" {
					p.buffer.WriteString(prefix)
				}
				if p.buffer.Len() > 0 && p.state == stateOutside {
					segments = append(segments, Segment{
						Text:        p.buffer.String(),
						ShouldSpeak: false,
						Index:       p.currentIndex,
					})
					p.currentIndex++
					p.buffer.Reset()
				}
				i += len("SPEAK]")
				current.Reset()
				p.state = stateInsideSpeak

			case strings.HasPrefix(remaining, "/SPEAK]") && p.state == stateInsideSpeak:
				prefix := current.String()
				prefix = prefix[:len(prefix)-1]
				if prefix != "" {
					p.buffer.WriteString(prefix)
				}
				if p.buffer.Len() > 0 {
					segments = append(segments, Segment{
						Text:        p.buffer.String(),
						ShouldSpeak: true,
						Index:       p.currentIndex,
					})
					p.currentIndex++
					p.buffer.Reset()
				}
				i += len("/SPEAK]")
				current.Reset()
				p.state = stateOutside

			case isPartialMarker("[" + remaining):
				prefix := current.String()
				prefix = prefix[:len(prefix)-1]
				if prefix != "" {
					p.buffer.WriteString(prefix)
				}
				p.pendingMarker = "[" + remaining
				return segments
			}
		}
	}

	if current.Len() > 0 {
		text := current.String()
		if mightEndWithPartialMarker(text) {
			safe, pending := splitAtPotentialMarker(text)
			p.buffer.WriteString(safe)
			p.pendingMarker = pending
		} else {
			p.buffer.WriteString(text)
		}
	}

	return segments
}

// Flush emits any remaining buffered content as a final segment. Returns
// nil if nothing remains. Call this once the token stream has ended.
func (p *Parser) Flush() *Segment {
	if p.pendingMarker != "" {
		p.buffer.WriteString(p.pendingMarker)
		p.pendingMarker = ""
	}

	if p.buffer.Len() == 0 {
		return nil
	}

	seg := Segment{
		Text:        p.buffer.String(),
		ShouldSpeak: p.state == stateInsideSpeak,
		Index:       p.currentIndex,
	}
	p.buffer.Reset()
	p.currentIndex++
	return &seg
}

func isPartialMarker(s string) bool {
	return strings.HasPrefix(openMarker, s) || strings.HasPrefix(closeMarker, s)
}

func mightEndWithPartialMarker(s string) bool {
	for _, suffix := range openPrefixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	for _, suffix := range closePrefixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// splitAtPotentialMarker splits s at the longest marker-prefix suffix,
// returning (safe, pending).
func splitAtPotentialMarker(s string) (string, string) {
	longest := ""
	for _, suffix := range openPrefixes {
		if strings.HasSuffix(s, suffix) && len(suffix) > len(longest) {
			longest = suffix
		}
	}
	for _, suffix := range closePrefixes {
		if strings.HasSuffix(s, suffix) && len(suffix) > len(longest) {
			longest = suffix
		}
	}
	if longest == "" {
		return s, ""
	}
	splitPos := len(s) - len(longest)
	return s[:splitPos], s[splitPos:]
}

// ParseResponse parses a complete, non-streaming response in one shot.
// Useful for tests or offline (non-streaming) LLM responses.
func ParseResponse(response string) []Segment {
	p := New()
	segments := p.Feed(response)
	if final := p.Flush(); final != nil {
		segments = append(segments, *final)
	}
	return segments
}
