package moduleuri

import (
	"fmt"

	mastersemver "github.com/Masterminds/semver/v3"
)

// DependencyConstraint is a `package:`/`projectpackage:` dependency
// declaration's version-range requirement (e.g. "^1.2.0", ">=1.0, <2.0"),
// grounded on holomush's plugin manifest versioning.
type DependencyConstraint struct {
	raw        string
	constraint *mastersemver.Constraints
}

// ParseConstraint compiles a dependency version-range expression.
func ParseConstraint(expr string) (*DependencyConstraint, error) {
	c, err := mastersemver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("moduleuri: invalid version constraint %q: %w", expr, err)
	}
	return &DependencyConstraint{raw: expr, constraint: c}, nil
}

// Matches reports whether version satisfies the constraint.
func (c *DependencyConstraint) Matches(version string) (bool, error) {
	v, err := mastersemver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("moduleuri: invalid dependency version %q: %w", version, err)
	}
	return c.constraint.Check(v), nil
}

func (c *DependencyConstraint) String() string { return c.raw }
