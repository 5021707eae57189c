package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledRunes lays out words separated by spaces. Committed words are
// coloured from their recorded mistakes, the current word from the live
// input; characters typed past the end of the current word are shown in red
// before the following space.
func buildStyledRunes(words []string, index int, input string, wrong map[int][]int) []styledRune {
	out := make([]styledRune, 0, len(words)*6)
	typed := []rune(input)
	for wi, word := range words {
		if wi > 0 {
			out = append(out, plainRune(' ', pendingStyle, true))
		}
		target := []rune(word)
		switch {
		case wi < index:
			bad := make(map[int]bool, len(wrong[wi]))
			for _, pos := range wrong[wi] {
				bad[pos] = true
			}
			for ci, r := range target {
				style := correctStyle
				if bad[ci] {
					style = incorrectStyle
				}
				out = append(out, plainRune(r, style, false))
			}
		case wi == index:
			for ci, r := range target {
				style := currentWordStyle
				switch {
				case ci < len(typed) && typed[ci] == r:
					style = correctStyle
				case ci < len(typed):
					style = incorrectStyle
				case ci == len(typed):
					style = cursorStyle
				}
				out = append(out, plainRune(r, style, false))
			}
			for _, r := range typed[min(len(typed), len(target)):] {
				out = append(out, plainRune(r, incorrectStyle, false))
			}
		default:
			for _, r := range target {
				out = append(out, plainRune(r, pendingStyle, false))
			}
		}
	}
	return out
}

func plainRune(r rune, style lipgloss.Style, isSpace bool) styledRune {
	return styledRune{
		s:       style.Render(string(r)),
		width:   runewidth.RuneWidth(r),
		isSpace: isSpace,
	}
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
