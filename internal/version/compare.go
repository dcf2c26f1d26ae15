package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mattxander12/forex-trader/pkg/errors"
)

// CheckModelCompatibility reports whether a model file written with format
// saved can be read by a binary that writes format current.
//
// Rules:
//   - "main" on either side skips the check
//   - major and minor must match
//   - patch may differ (1.1.0 reads 1.1.4)
func CheckModelCompatibility(current, saved string) error {
	current = strings.TrimPrefix(current, "v")
	saved = strings.TrimPrefix(saved, "v")

	if current == "main" || saved == "main" {
		return nil
	}

	cur, err := semver.NewVersion(current)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid current model format '%s'", current)
	}

	got, err := semver.NewVersion(saved)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid saved model format '%s'", saved)
	}

	constraint, err := semver.NewConstraint(fmt.Sprintf("~%d.%d.0-0", cur.Major(), cur.Minor()))
	if err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "failed to build model format constraint", err)
	}

	if !constraint.Check(got) {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"model format %s is not readable by this build (expects %d.%d.x)", got, cur.Major(), cur.Minor())
	}

	return nil
}
