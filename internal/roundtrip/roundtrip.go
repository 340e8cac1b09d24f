// Package roundtrip preserves hand-written code across regenerations.
//
// Generated C files carry marker comments delimiting four kinds of custom
// region: an includes block, a functions block, a type-enum block (impl
// headers), and one body block per generated function. Extract pulls the
// verbatim text of each region out of a previously generated file; Merge
// splices that text back into a freshly rendered skeleton at the matching
// markers.
//
// The block regions use single-line markers. Function bodies are framed by
// boxed comments whose middle line carries the function name:
//
//	/*
//	 * +---------------...---------------+
//	 * |START CUSTOM FUNCTION <name> BODY
//	 * +---------------...---------------+
//	 */
//
// Marker matching is a finite state machine over trimmed lines, so an
// unterminated region is detected as an invalid state transition rather
// than by post hoc scanning.
package roundtrip

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Marker lines recognized in generated files. The text is fixed; only the
// function-body markers embed a name.
const (
	IncludesStart  = "/*   START CUSTOM INCLUDES HERE  */"
	IncludesStop   = "/*   STOP CUSTOM INCLUDES HERE  */"
	FunctionsStart = "/*   START CUSTOM FUNCTIONS HERE */"
	FunctionsStop  = "/*   STOP CUSTOM FUNCTIONS HERE  */"
	TypeEnumsStart = "/*   START typeENUM */"
	TypeEnumsStop  = "/*   STOP typeENUM  */"

	bodyIndicator   = "* +-------------------------------------------------------------------------+"
	bodyStartPrefix = "* |START CUSTOM FUNCTION "
	bodyStopPrefix  = "* |STOP CUSTOM FUNCTION "
	bodySuffix      = " BODY"
)

// bodyFrame renders one boxed body marker comment, tab-indented, without a
// trailing newline.
func bodyFrame(markerLine string) string {
	return strings.Join([]string{
		"\t/*",
		"\t " + bodyIndicator,
		"\t * " + markerLine,
		"\t " + bodyIndicator,
		"\t */",
	}, "\n")
}

// BodyStart returns the START marker frame for a function body.
func BodyStart(name string) string {
	return bodyFrame("|START CUSTOM FUNCTION " + name + bodySuffix)
}

// BodyStop returns the STOP marker frame for a function body.
func BodyStop(name string) string {
	return bodyFrame("|STOP CUSTOM FUNCTION " + name + bodySuffix)
}

// markerName extracts the function name from a body marker middle line with
// the given prefix, or "" when line is not such a marker.
func markerName(line, prefix string) string {
	if strings.HasPrefix(line, prefix) && strings.HasSuffix(line, bodySuffix) {
		return line[len(prefix) : len(line)-len(bodySuffix)]
	}
	return ""
}

// Regions holds the custom text extracted from a previously generated file.
// Content slices are the verbatim lines strictly between the markers.
type Regions struct {
	Includes     []string
	HasIncludes  bool
	Functions    []string
	HasFunctions bool
	TypeEnums    []string
	HasTypeEnums bool
	Bodies       map[string][]string
}

// emptyRegions is what a missing prior file yields: nothing to preserve.
func emptyRegions() *Regions {
	return &Regions{Bodies: make(map[string][]string)}
}

// extractor states.
type state int

const (
	stOutside state = iota
	stIncludes
	stFunctions
	stTypeEnums
	stBodyOpen // inside the START frame, before its closing */
	stBody
)

// Extract scans previously generated text for marker pairs and returns the
// captured regions. Two START lines of the same kind without an intervening
// STOP, a STOP for a different function, text ending inside a region, or a
// duplicate function-body name are all fatal.
func Extract(text string) (*Regions, error) {
	r := emptyRegions()
	st := stOutside
	bodyName := ""
	lineNo := 0

	for _, raw := range strings.Split(text, "\n") {
		lineNo++
		line := strings.TrimSpace(raw)

		switch st {
		case stOutside:
			switch line {
			case IncludesStart:
				st = stIncludes
				r.HasIncludes = true
			case FunctionsStart:
				st = stFunctions
				r.HasFunctions = true
			case TypeEnumsStart:
				st = stTypeEnums
				r.HasTypeEnums = true
			default:
				if name := markerName(line, bodyStartPrefix); name != "" {
					if _, dup := r.Bodies[name]; dup {
						return nil, fmt.Errorf("roundtrip: line %d: duplicate custom body for function %q", lineNo, name)
					}
					st = stBodyOpen
					bodyName = name
					r.Bodies[name] = []string{}
				}
			}

		case stIncludes:
			switch line {
			case IncludesStop:
				st = stOutside
			case IncludesStart:
				return nil, fmt.Errorf("roundtrip: line %d: unterminated custom includes region", lineNo)
			default:
				r.Includes = append(r.Includes, raw)
			}

		case stFunctions:
			switch line {
			case FunctionsStop:
				st = stOutside
			case FunctionsStart:
				return nil, fmt.Errorf("roundtrip: line %d: unterminated custom functions region", lineNo)
			default:
				r.Functions = append(r.Functions, raw)
			}

		case stTypeEnums:
			switch line {
			case TypeEnumsStop:
				st = stOutside
			case TypeEnumsStart:
				return nil, fmt.Errorf("roundtrip: line %d: unterminated custom type-enum region", lineNo)
			default:
				r.TypeEnums = append(r.TypeEnums, raw)
			}

		case stBodyOpen:
			// Consume the rest of the START frame; body content begins
			// after its closing comment line.
			switch line {
			case bodyIndicator:
			case "*/":
				st = stBody
			default:
				st = stBody
				r.Bodies[bodyName] = append(r.Bodies[bodyName], raw)
			}

		case stBody:
			if name := markerName(line, bodyStopPrefix); name != "" {
				if name != bodyName {
					return nil, fmt.Errorf("roundtrip: line %d: STOP for %q inside body of %q", lineNo, name, bodyName)
				}
				trimBodyFrameTail(r.Bodies, bodyName)
				st = stOutside
				bodyName = ""
				continue
			}
			if markerName(line, bodyStartPrefix) != "" {
				return nil, fmt.Errorf("roundtrip: line %d: unterminated custom body for function %q", lineNo, bodyName)
			}
			r.Bodies[bodyName] = append(r.Bodies[bodyName], raw)
		}
	}

	switch st {
	case stIncludes:
		return nil, fmt.Errorf("roundtrip: unterminated custom includes region at end of file")
	case stFunctions:
		return nil, fmt.Errorf("roundtrip: unterminated custom functions region at end of file")
	case stTypeEnums:
		return nil, fmt.Errorf("roundtrip: unterminated custom type-enum region at end of file")
	case stBodyOpen, stBody:
		return nil, fmt.Errorf("roundtrip: unterminated custom body for function %q at end of file", bodyName)
	}
	return r, nil
}

// trimBodyFrameTail removes the STOP frame's leading comment lines, which
// were captured before the marker middle line identified the frame.
func trimBodyFrameTail(bodies map[string][]string, name string) {
	body := bodies[name]
	if n := len(body); n > 0 && strings.TrimSpace(body[n-1]) == bodyIndicator {
		body = body[:n-1]
	}
	if n := len(body); n > 0 && strings.TrimSpace(body[n-1]) == "/*" {
		body = body[:n-1]
	}
	bodies[name] = body
}

// ExtractFile extracts regions from the file at path. A missing file yields
// empty regions, not an error: first generation has nothing to preserve.
func ExtractFile(path string) (*Regions, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return emptyRegions(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("roundtrip: read %s: %w", path, err)
	}
	regions, err := Extract(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return regions, nil
}

// Merge splices prev's regions into a freshly rendered skeleton. Extracted
// includes/functions/type-enum text replaces the skeleton's default content
// between the corresponding markers; each extracted body replaces the
// placeholder body of the function with the same name. Skeleton regions
// without an extracted counterpart keep their generated defaults. Extracted
// bodies whose function no longer appears in the skeleton are dropped and
// returned as orphans for the caller to report.
func Merge(skeleton string, prev *Regions) (string, []string, error) {
	if prev == nil {
		prev = emptyRegions()
	}
	var out []string
	var pending []string // body lines buffered until the STOP frame is found
	st := stOutside
	bodyName := ""
	lineNo := 0
	seen := make(map[string]bool)

	for _, raw := range strings.Split(skeleton, "\n") {
		lineNo++
		line := strings.TrimSpace(raw)

		switch st {
		case stOutside:
			out = append(out, raw)
			switch line {
			case IncludesStart:
				st = stIncludes
				if prev.HasIncludes {
					out = append(out, prev.Includes...)
				}
			case FunctionsStart:
				st = stFunctions
				if prev.HasFunctions {
					out = append(out, prev.Functions...)
				}
			case TypeEnumsStart:
				st = stTypeEnums
				if prev.HasTypeEnums {
					out = append(out, prev.TypeEnums...)
				}
			default:
				if name := markerName(line, bodyStartPrefix); name != "" {
					st = stBodyOpen
					bodyName = name
					seen[name] = true
				}
			}

		case stIncludes:
			switch line {
			case IncludesStop:
				st = stOutside
				out = append(out, raw)
			case IncludesStart:
				return "", nil, fmt.Errorf("roundtrip: skeleton line %d: unterminated custom includes region", lineNo)
			default:
				if !prev.HasIncludes {
					out = append(out, raw)
				}
			}

		case stFunctions:
			switch line {
			case FunctionsStop:
				st = stOutside
				out = append(out, raw)
			case FunctionsStart:
				return "", nil, fmt.Errorf("roundtrip: skeleton line %d: unterminated custom functions region", lineNo)
			default:
				if !prev.HasFunctions {
					out = append(out, raw)
				}
			}

		case stTypeEnums:
			switch line {
			case TypeEnumsStop:
				st = stOutside
				out = append(out, raw)
			case TypeEnumsStart:
				return "", nil, fmt.Errorf("roundtrip: skeleton line %d: unterminated custom type-enum region", lineNo)
			default:
				if !prev.HasTypeEnums {
					out = append(out, raw)
				}
			}

		case stBodyOpen:
			out = append(out, raw)
			if line == "*/" {
				if body, ok := prev.Bodies[bodyName]; ok {
					out = append(out, body...)
				}
				pending = pending[:0]
				st = stBody
			}

		case stBody:
			if name := markerName(line, bodyStopPrefix); name != "" {
				if name != bodyName {
					return "", nil, fmt.Errorf("roundtrip: skeleton line %d: STOP for %q inside body of %q", lineNo, name, bodyName)
				}
				// The STOP frame's leading comment lines sit at the tail of
				// the pending buffer; everything before them is the
				// skeleton's default body.
				n := len(pending)
				if n < 2 || strings.TrimSpace(pending[n-1]) != bodyIndicator || strings.TrimSpace(pending[n-2]) != "/*" {
					return "", nil, fmt.Errorf("roundtrip: skeleton line %d: malformed STOP frame for function %q", lineNo, bodyName)
				}
				if _, ok := prev.Bodies[bodyName]; !ok {
					out = append(out, pending[:n-2]...)
				}
				out = append(out, pending[n-2], pending[n-1], raw)
				pending = pending[:0]
				st = stOutside
				bodyName = ""
				continue
			}
			if markerName(line, bodyStartPrefix) != "" {
				return "", nil, fmt.Errorf("roundtrip: skeleton line %d: unterminated custom body for function %q", lineNo, bodyName)
			}
			pending = append(pending, raw)
		}
	}
	if st != stOutside {
		return "", nil, fmt.Errorf("roundtrip: skeleton ends inside a custom region")
	}

	var orphans []string
	for name := range prev.Bodies {
		if !seen[name] {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return strings.Join(out, "\n"), orphans, nil
}
