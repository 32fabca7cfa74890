package errors

import (
	"regexp"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

var (
	lineRe    = regexp.MustCompile(`line:(\d+)`)
	propRe    = regexp.MustCompile(`\bproperty (\S+)`)
	lineTokRe = regexp.MustCompile(`\bline (\d+)`)
)

// knownKinds guards round-trip classification of raised bridge errors.
var knownKinds = map[Kind]bool{
	KindSyntax:             true,
	KindRuntime:            true,
	KindTypeMismatch:       true,
	KindArgumentCount:      true,
	KindValidationRejected: true,
	KindAllocation:         true,
	KindOutOfBounds:        true,
	KindInvalidReceiver:    true,
	KindInvalidCallable:    true,
	KindNotFound:           true,
	KindNotInitialized:     true,
	KindInvalidInput:       true,
	KindRegistration:       true,
	KindUnsupported:        true,
}

// FromLua classifies an engine error into a structured Error.
// Syntax errors keep their source line; runtime errors that originated
// as raised bridge errors are reconstructed with their original Phase
// and Kind so host code sees the same taxonomy that script pcall saw.
func FromLua(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}

	ae, ok := err.(*lua.ApiError)
	if !ok {
		return Runtime(err.Error(), err)
	}

	msg := ae.Object.String()
	switch ae.Type {
	case lua.ApiErrorSyntax, lua.ApiErrorFile:
		return Syntax(parseLine(msg), msg)
	default:
		if e := reparse(msg); e != nil {
			return e
		}
		return Runtime(msg, err)
	}
}

// Raise converts e into the engine's native error-raising mechanism.
// It does not return; gopher-lua unwinds via panic to the nearest
// protected call.
func Raise(L *lua.LState, e *Error) {
	L.RaiseError("%s", e.Error())
}

// parseLine extracts the source line from a gopher-lua parse error
// message ("... line:3(column:7) near ..."). Returns 0 when absent.
func parseLine(msg string) int {
	m := lineRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// reparse recovers a raised bridge error from its formatted message.
// Raised errors travel through the engine as strings prefixed with
// chunk position info; the "[phase] kind" header survives verbatim,
// followed by optional locators (path, property, line) and the detail.
func reparse(msg string) *Error {
	start := strings.Index(msg, "[")
	if start < 0 {
		return nil
	}
	s := msg[start:]
	end := strings.Index(s, "] ")
	if end < 0 {
		return nil
	}
	phase := Phase(s[1:end])
	rest := s[end+2:]

	kind := Kind(rest)
	meta := ""
	if kindEnd := strings.IndexAny(rest, " :"); kindEnd >= 0 {
		kind = Kind(rest[:kindEnd])
		meta = rest[kindEnd:]
	}
	if !knownKinds[kind] {
		return nil
	}
	e := &Error{Phase: phase, Kind: kind}

	// Locators precede the first ": "; the detail follows it.
	loc, detail := meta, ""
	if i := strings.Index(meta, ": "); i >= 0 {
		loc, detail = meta[:i], meta[i+2:]
	}
	// With a type annotation present, the human detail follows " - ".
	if strings.HasPrefix(detail, "Go type ") || strings.HasPrefix(detail, "Lua type ") {
		if j := strings.Index(detail, " - "); j >= 0 {
			detail = detail[j+3:]
		}
	}
	if m := propRe.FindStringSubmatch(loc); m != nil {
		e.Property = m[1]
	}
	if m := lineTokRe.FindStringSubmatch(loc); m != nil {
		e.Line, _ = strconv.Atoi(m[1])
	}
	e.Detail = strings.TrimSpace(detail)
	return e
}
