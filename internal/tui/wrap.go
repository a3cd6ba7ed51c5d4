package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/diktor/internal/match"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// heardWords returns the normalized words of a transcript.
func heardWords(transcript string) map[string]struct{} {
	words := match.Words(transcript)
	if len(words) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// buildStyledRunes styles the exercise text: words present in heard are
// highlighted, and with markNext the first word not heard yet is marked as the next one.
func buildStyledRunes(targetRunes []rune, heard map[string]struct{}, markNext bool) []styledRune {
	words := findWords(targetRunes)
	styles := make([]int, len(words))
	nextMarked := !markNext
	for i, w := range words {
		key := strings.TrimSpace(match.Normalize(string(targetRunes[w.start:w.end])))
		if _, ok := heard[key]; ok && key != "" {
			styles[i] = wordHeard
			continue
		}
		if !nextMarked {
			styles[i] = wordNext
			nextMarked = true
		}
	}

	out := make([]styledRune, 0, len(targetRunes))
	wordIdx := 0
	for i, r := range targetRunes {
		for wordIdx < len(words) && i >= words[wordIdx].end {
			wordIdx++
		}
		style := pendingStyle
		if wordIdx < len(words) && i >= words[wordIdx].start {
			switch styles[wordIdx] {
			case wordHeard:
				style = heardStyle
			case wordNext:
				style = currentWordStyle
			}
		}
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

const (
	wordPending = iota
	wordHeard
	wordNext
)

type wordRange struct {
	start int
	end   int
}

func findWords(targetRunes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range targetRunes {
		if r == ' ' {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
