package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	clauseRE  = regexp.MustCompile(`^\s*(~=|===|==|!=|<=|>=|<|>)\s*(\S+)\s*$`)
	releaseRE = regexp.MustCompile(`^[vV]?(\d+(?:\.\d+)*)`)
)

// AllowsPython reports whether a PEP 440 Requires-Python specifier such as
// ">=3.8, !=3.9.*, <4" admits python. An empty specifier admits every
// version.
func AllowsPython(spec, python string) (bool, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return true, nil
	}
	v, err := semver.NewVersion(release(python))
	if err != nil {
		return false, fmt.Errorf("python version %q: %w", python, err)
	}
	c, err := constraint(spec)
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

// constraint translates a PEP 440 specifier set into semver constraint
// syntax. Pre-release, post-release and local segments are dropped.
func constraint(spec string) (*semver.Constraints, error) {
	var clauses []string
	for _, part := range strings.Split(spec, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m := clauseRE.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid specifier clause %q", strings.TrimSpace(part))
		}
		op, ver := m[1], m[2]
		wildcard := strings.HasSuffix(ver, ".*")
		ver = release(strings.TrimSuffix(ver, ".*"))
		if ver == "" {
			return nil, fmt.Errorf("invalid version in %q", strings.TrimSpace(part))
		}

		if wildcard && strings.Count(ver, ".") >= 2 {
			// A wildcard past the patch segment cannot be expressed; the
			// release prefix is as precise as we compare.
			wildcard = false
		}

		switch {
		case wildcard && op == "==":
			clauses = append(clauses, ver+".x")
		case wildcard && op == "!=":
			clauses = append(clauses, "!="+ver+".x")
		case wildcard:
			return nil, fmt.Errorf("wildcard not allowed with %s", op)
		case op == "~=":
			// ~=A.B is >=A.B, ==A.*; ~=A.B.C is >=A.B.C, ==A.B.*
			switch strings.Count(ver, ".") {
			case 0:
				return nil, fmt.Errorf("~= requires at least two release segments in %q", strings.TrimSpace(part))
			case 1:
				clauses = append(clauses, "^"+pad(ver))
			default:
				clauses = append(clauses, "~"+ver)
			}
		case op == "==" || op == "===":
			clauses = append(clauses, "="+pad(ver))
		default:
			clauses = append(clauses, op+pad(ver))
		}
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("empty specifier %q", spec)
	}
	return semver.NewConstraint(strings.Join(clauses, ", "))
}

// release extracts at most three numeric release segments from a PEP 440
// version: "3.10.0rc1" becomes "3.10.0", "2.7.18.1" becomes "2.7.18".
func release(v string) string {
	m := releaseRE.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return ""
	}
	parts := strings.Split(m[1], ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".")
}

// pad zero-extends a release to three segments. PEP 440 compares "3.6" as
// 3.6.0, while a short semver constraint would match a whole range.
func pad(v string) string {
	for strings.Count(v, ".") < 2 {
		v += ".0"
	}
	return v
}
