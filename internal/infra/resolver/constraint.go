package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

type comparator struct {
	op      string
	version string
}

// Constraint is a parsed version range. Terms separated by commas must all hold.
type Constraint struct {
	raw   string
	terms []comparator
}

// ParseConstraint parses expressions such as ">=1.0.0", "^1.2.0", "~0.3.1",
// "=2.0.0" or ">=1.0.0, <2.0.0". An empty expression matches every version.
func ParseConstraint(expr string) (Constraint, error) {
	c := Constraint{raw: strings.TrimSpace(expr)}
	if c.raw == "" {
		return c, nil
	}
	for _, part := range strings.Split(c.raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Constraint{}, fmt.Errorf("constraint %q: empty term", expr)
		}
		op, rest := splitOperator(part)
		version, ok := canonical(rest)
		if !ok {
			return Constraint{}, fmt.Errorf("constraint %q: invalid version %q", expr, rest)
		}
		switch op {
		case "^":
			c.terms = append(c.terms, comparator{op: ">=", version: version}, comparator{op: "<", version: caretUpper(version)})
		case "~":
			c.terms = append(c.terms, comparator{op: ">=", version: version}, comparator{op: "<", version: tildeUpper(version)})
		default:
			c.terms = append(c.terms, comparator{op: op, version: version})
		}
	}
	return c, nil
}

func (c Constraint) String() string {
	return c.raw
}

// Empty reports whether the constraint accepts every version.
func (c Constraint) Empty() bool {
	return len(c.terms) == 0
}

// Satisfied reports whether version lies in the range. A missing or invalid
// version never satisfies a non-empty constraint.
func (c Constraint) Satisfied(version string) bool {
	if c.Empty() {
		return true
	}
	v, ok := canonical(version)
	if !ok {
		return false
	}
	for _, term := range c.terms {
		cmp := semver.Compare(v, term.version)
		var hold bool
		switch term.op {
		case ">=":
			hold = cmp >= 0
		case "<=":
			hold = cmp <= 0
		case ">":
			hold = cmp > 0
		case "<":
			hold = cmp < 0
		case "!=":
			hold = cmp != 0
		default:
			hold = cmp == 0
		}
		if !hold {
			return false
		}
	}
	return true
}

func splitOperator(term string) (string, string) {
	for _, op := range []string{">=", "<=", "!=", "==", ">", "<", "=", "^", "~"} {
		if strings.HasPrefix(term, op) {
			if op == "==" {
				return "=", strings.TrimSpace(term[len(op):])
			}
			return op, strings.TrimSpace(term[len(op):])
		}
	}
	return "=", term
}

func canonical(version string) (string, bool) {
	version = strings.TrimSpace(version)
	if version == "" {
		return "", false
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return "", false
	}
	return semver.Canonical(version), true
}

func versionParts(version string) (int, int) {
	parts := strings.SplitN(strings.TrimPrefix(semver.MajorMinor(version), "v"), ".", 2)
	major, _ := strconv.Atoi(parts[0])
	minor := 0
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return major, minor
}

func caretUpper(version string) string {
	major, minor := versionParts(version)
	if major == 0 {
		return fmt.Sprintf("v0.%d.0", minor+1)
	}
	return fmt.Sprintf("v%d.0.0", major+1)
}

func tildeUpper(version string) string {
	major, minor := versionParts(version)
	return fmt.Sprintf("v%d.%d.0", major, minor+1)
}
