package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a stored printf-style format string against a
// descriptor-ordered argument frame. It is a printf-subset interpreter, not
// a call into a host formatter: conversions consume values from frame in
// order, independent of what the conversion's own letter claims, because
// the observed wire encoding relies on descriptor order for the actual
// pull of values — the format string's tokens are cosmetic.
//
// Recognized conversions: %d %i %u %x %X %o, %p, %f %e %g (and their
// uppercase forms), %c, %s, %%. Flags, width and precision are parsed for
// all of them. Width and the '-' flag apply to the integer, floating-point
// and %s conversions; the '0' flag to the integer and floating-point ones;
// '#' to the integer ones; precision only to the floating-point ones. The
// '+' and ' ' flags are ignored, and %c and %p ignore the whole prefix.
// Length modifiers (h, hh, l, ll, z, j, t) are accepted and ignored.
// Unknown conversions emit the literal substring they were spelled with.
func Format(format string, frame []Value) string {
	var out strings.Builder
	argIdx := 0
	runes := []rune(format)

	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			out.WriteRune(runes[i])
			continue
		}

		start := i
		i++
		if i >= len(runes) {
			out.WriteRune('%')
			break
		}
		if runes[i] == '%' {
			out.WriteByte('%')
			continue
		}

		spec, conv, next, ok := parseConversion(runes, i)
		if !ok {
			// Unrecognized conversion: emit the literal substring as-is.
			out.WriteString(string(runes[start : next+1]))
			i = next
			continue
		}

		var arg Value
		if conv != '%' {
			if argIdx >= len(frame) {
				// Out of arguments: emit the conversion literally rather
				// than panicking on a malformed trace.
				out.WriteString(string(runes[start : next+1]))
				i = next
				continue
			}
			arg = frame[argIdx]
			argIdx++
		}

		out.WriteString(renderConversion(spec, conv, arg))
		i = next
	}

	return out.String()
}

// parseConversion scans a conversion spec starting at runes[i] (the
// character right after '%'). It returns the flag/width/precision prefix
// (spec), the resolved conversion rune, the index of the conversion
// character, and whether the conversion is recognized.
func parseConversion(runes []rune, i int) (spec string, conv rune, lastIdx int, ok bool) {
	j := i
	specStart := i

	// Flags.
	for j < len(runes) && strings.ContainsRune("-+ 0#", runes[j]) {
		j++
	}
	// Width.
	for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
		j++
	}
	// Precision.
	if j < len(runes) && runes[j] == '.' {
		j++
		for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
			j++
		}
	}
	spec = string(runes[specStart:j])

	// Length modifiers: hh, h, ll, l, z, j, t — accepted, ignored.
	for j < len(runes) {
		switch runes[j] {
		case 'h', 'l':
			j++
			continue
		case 'z', 'j', 't':
			j++
			continue
		}
		break
	}

	if j >= len(runes) {
		return spec, 0, j - 1, false
	}

	switch runes[j] {
	case 'd', 'i', 'u', 'x', 'X', 'o', 'p', 'f', 'e', 'E', 'g', 'G', 'c', 's':
		return spec, runes[j], j, true
	default:
		return spec, 0, j, false
	}
}

// renderConversion formats a single resolved conversion against arg,
// honoring the parts of the flag/width/precision prefix listed on Format.
func renderConversion(spec string, conv rune, arg Value) string {
	flags, width, precision := splitSpec(spec)

	switch conv {
	case 'd', 'i':
		return applyWidth(fmt.Sprintf(intVerb(flags, width, precision, 'd'), arg.Int), flags, width, "")
	case 'u':
		return applyWidth(fmt.Sprintf(intVerb(flags, width, precision, 'd'), uint64(arg.Int)), flags, width, "")
	case 'x':
		return applyWidth(fmt.Sprintf(intVerb(flags, width, precision, 'x'), uint64(arg.Int)), flags, width, "")
	case 'X':
		return applyWidth(fmt.Sprintf(intVerb(flags, width, precision, 'X'), uint64(arg.Int)), flags, width, "")
	case 'o':
		return applyWidth(fmt.Sprintf(intVerb(flags, width, precision, 'o'), uint64(arg.Int)), flags, width, "")
	case 'p':
		return fmt.Sprintf("0x%x", uint64(arg.Int))
	case 'f', 'e', 'E', 'g', 'G':
		prec := 6
		if precision != "" {
			prec, _ = strconv.Atoi(precision)
		}
		verb := "%." + strconv.Itoa(prec) + string(conv)
		return applyWidth(fmt.Sprintf(verb, arg.Float), flags, width, "")
	case 'c':
		return string(rune(arg.Int))
	case 's':
		return applyWidth(arg.Str, strings.ReplaceAll(flags, "0", ""), width, "")
	default:
		return ""
	}
}

func splitSpec(spec string) (flags, width, precision string) {
	i := 0
	for i < len(spec) && strings.ContainsRune("-+ 0#", rune(spec[i])) {
		flags += string(spec[i])
		i++
	}
	widthStart := i
	for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
		i++
	}
	width = spec[widthStart:i]
	if i < len(spec) && spec[i] == '.' {
		i++
		precStart := i
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		precision = spec[precStart:i]
	}
	return flags, width, precision
}

func intVerb(flags, width, precision string, letter byte) string {
	v := "%"
	if strings.Contains(flags, "#") {
		v += "#"
	}
	v += string(letter)
	return v
}

// applyWidth left/right-pads s to the requested width, honoring the '-'
// (left-justify) and '0' (zero-pad, numeric only) flags.
func applyWidth(s, flags, width, _ string) string {
	if width == "" {
		return s
	}
	w, err := strconv.Atoi(width)
	if err != nil || len(s) >= w {
		return s
	}
	pad := w - len(s)
	padChar := byte(' ')
	if strings.Contains(flags, "0") && !strings.Contains(flags, "-") {
		padChar = '0'
	}
	padding := strings.Repeat(string(padChar), pad)
	if strings.Contains(flags, "-") {
		return s + strings.Repeat(" ", pad)
	}
	return padding + s
}
